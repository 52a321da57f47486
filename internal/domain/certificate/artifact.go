package certificate

const (
	// ArtifactExtension is appended to the recipient ID to form the object key
	ArtifactExtension = ".pdf"
	// ArtifactContentType is the MIME type of published certificates
	ArtifactContentType = "application/pdf"
)

// ArtifactKey returns the deterministic object key for a recipient's PDF.
// There is no randomness or versioning: publishing twice for the same ID
// replaces the object in place.
func ArtifactKey(recipientID string) string {
	return recipientID + ArtifactExtension
}
