// Package printing provides infrastructure implementations for certificate
// rendering: HTML templating and HTML to PDF conversion using headless
// Chrome through the Chrome DevTools Protocol.
//
// This package contains:
// - TemplateEngine for rendering the bundled certificate template
// - Converter, which scopes one browser session per conversion
// - ChromedpLauncher, the chromedp-backed BrowserLauncher
//
// Example usage:
//
//	launcher := NewChromedpLauncher(&ChromedpConfig{NoSandbox: true})
//	converter := NewConverter(launcher, WithConverterLogger(log))
//
//	pdf, err := converter.Convert(ctx, "<html>...</html>")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Generated PDF: %d bytes\n", len(pdf))
package printing
