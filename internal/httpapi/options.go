package httpapi

// Options wires the HTTP layer to its inputs. Keep it small: this service is
// a conversion pipeline behind one secret route, not a framework.
type Options struct {
	// Token is the secret path segment of the subscription route. The only
	// data endpoint is GET /<Token>; every other path 404s.
	Token string

	// SourcePath is the text file holding one share link per line.
	SourcePath string

	// TemplatePath optionally points at a Clash template to merge generated
	// nodes into. Empty means "synthesize the default document".
	TemplatePath string
}
