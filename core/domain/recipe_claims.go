package domain

// IdentityClaims are the verified claims supplied by the identity
// provider. Token verification happens upstream; by the time claims
// reach a service they are trusted as-is.
type IdentityClaims struct {
	SubjectID   string `json:"sub"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"picture"`
	Admin       bool   `json:"admin"`
}
