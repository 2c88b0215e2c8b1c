package datasource

// secretMask replaces secret values in logged copies.
const secretMask = "*****"

// Redacted returns a deep copy of the data source with every credential
// field masked. The receiver is never mutated, so the copy is safe to log
// while the original goes to the completion API intact.
func (d *DataSource) Redacted() *DataSource {
	if d == nil {
		return nil
	}

	clone := *d
	clone.Parameters.FieldsMapping.ContentFields = append([]string(nil), d.Parameters.FieldsMapping.ContentFields...)
	clone.Parameters.FieldsMapping.VectorFields = append([]string(nil), d.Parameters.FieldsMapping.VectorFields...)
	clone.Parameters.Authentication = redactAuthentication(d.Parameters.Authentication)

	if dep := d.Parameters.EmbeddingDependency; dep != nil {
		depClone := *dep
		depClone.Authentication = redactAuthentication(dep.Authentication)
		clone.Parameters.EmbeddingDependency = &depClone
	}

	return &clone
}

func redactAuthentication(auth *Authentication) *Authentication {
	if auth == nil {
		return nil
	}
	clone := *auth
	if clone.Key != "" {
		clone.Key = secretMask
	}
	if clone.APIKey != "" {
		clone.APIKey = secretMask
	}
	if clone.ConnectionString != "" {
		clone.ConnectionString = secretMask
	}
	if clone.EncodedAPIKey != "" {
		clone.EncodedAPIKey = secretMask
	}
	return &clone
}
