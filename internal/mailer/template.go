package mailer

import "strings"

// UploadRequestTemplate is the body of an upload request. Both the email and
// the magic-link text message are rendered from it.
const UploadRequestTemplate = `Hello {{name}},

Please upload your documents for Trajector using this link:
{{link}}

{{note}}`

// RenderTemplate substitutes {{key}} tokens with the given values. Tokens
// without a value are left in place.
func RenderTemplate(tmpl string, values map[string]string) string {
	result := tmpl
	for key, value := range values {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}
