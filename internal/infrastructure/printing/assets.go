package printing

import (
	"embed"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// CertificateTemplateName is the bundled certificate template
	CertificateTemplateName = "certificate.html"
	// MedalAssetName is the bundled emblem image
	MedalAssetName = "medal.png"
)

//go:embed assets/certificate.html assets/medal.png
var bundledAssets embed.FS

// Assets is the static, versioned material a certificate is built from
type Assets struct {
	// Template is the certificate markup template source
	Template string
	// Medal is the emblem image as a base64 data URI
	Medal string
}

// AssetSource reads certificate assets from a file system
type AssetSource struct {
	fsys         fs.FS
	templateName string
}

// NewAssetSource creates a source over the bundled assets
func NewAssetSource() *AssetSource {
	sub, _ := fs.Sub(bundledAssets, "assets")
	return NewAssetSourceFS(sub, CertificateTemplateName)
}

// NewAssetSourceFS creates a source over an arbitrary file system
func NewAssetSourceFS(fsys fs.FS, templateName string) *AssetSource {
	if templateName == "" {
		templateName = CertificateTemplateName
	}
	return &AssetSource{
		fsys:         fsys,
		templateName: templateName,
	}
}

// NewTemplateFileSource creates a source whose template is read from path.
// Assets missing from the template's directory, such as the emblem, fall
// back to the bundled ones.
func NewTemplateFileSource(path string) *AssetSource {
	bundled, _ := fs.Sub(bundledAssets, "assets")
	return NewAssetSourceFS(overlayFS{
		primary:  os.DirFS(filepath.Dir(path)),
		fallback: bundled,
	}, filepath.Base(path))
}

// overlayFS opens names from primary, then from fallback when absent
type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return o.fallback.Open(name)
	}
	return f, err
}

// Load reads the template and the emblem. The emblem is encoded as a
// data URI so it can be embedded inline.
func (s *AssetSource) Load() (*Assets, error) {
	tmpl, err := fs.ReadFile(s.fsys, s.templateName)
	if err != nil {
		return nil, NewRenderError(ErrCodeAssetMissing, "failed to read certificate template", err)
	}

	medal, err := fs.ReadFile(s.fsys, MedalAssetName)
	if err != nil {
		return nil, NewRenderError(ErrCodeAssetMissing, "failed to read medal image", err)
	}

	return &Assets{
		Template: string(tmpl),
		Medal:    PNGDataURI(medal),
	}, nil
}

// TemplateName returns the name of the template this source loads
func (s *AssetSource) TemplateName() string {
	return s.templateName
}

// PNGDataURI encodes PNG bytes as an inline data URI
func PNGDataURI(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
