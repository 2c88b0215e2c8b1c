package models

// Persona is a named system-prompt variant. It is chosen per session and
// decides which role information the model sees.
type Persona string

const (
	// PersonaDefault is the standard assistant prompt.
	PersonaDefault Persona = "default"
	// PersonaTutor is the guided-tutoring prompt.
	PersonaTutor Persona = "tutor"
)

// ParsePersona maps a stored prompt-type string to a Persona, falling back to
// the default for unknown values.
func ParsePersona(s string) Persona {
	if Persona(s) == PersonaTutor {
		return PersonaTutor
	}
	return PersonaDefault
}
