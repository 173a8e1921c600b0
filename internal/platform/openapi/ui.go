package openapi

import (
	"bytes"
	"html/template"
)

var swaggerUITemplate = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: {{.SpecURL}},
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`))

// RenderUI returns a Swagger UI page that loads the document at specURL.
func RenderUI(title, specURL string) (string, error) {
	var buf bytes.Buffer
	err := swaggerUITemplate.Execute(&buf, struct {
		Title   string
		SpecURL string
	}{title, specURL})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
