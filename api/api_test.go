package api_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/oneaccess/api"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

var _ = Describe("OpenAPI document", func() {
	It("loads and validates", func() {
		doc, err := api.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Info.Title).To(Equal("OneAccess API"))
	})

	It("documents the access endpoints", func() {
		doc, err := api.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())

		for _, path := range []string{"/.well-known/jwks.json", "/qr/token", "/visitor/token", "/access/verify"} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), path)
		}
		verify := doc.Paths.Find("/access/verify").Post
		Expect(verify.Security).To(BeNil())
	})
})
