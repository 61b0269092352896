package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func Handler() http.Handler {
	// The UI reads the embedded contract served at /openapi.yml.
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}
