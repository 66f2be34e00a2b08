package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func TestProofVerifier_Describe(t *testing.T) {
	tests := []struct {
		url  string
		kind string
	}{
		{"https://files.example.com/proofs/abc.pdf", billing.ProofKindPDF},
		{"https://files.example.com/proofs/abc.PDF?sig=123", billing.ProofKindPDF},
		{"/proofs/inv-1/comprobante.pdf", billing.ProofKindPDF},
		{"https://files.example.com/proofs/abc.png", billing.ProofKindImage},
		{"https://files.example.com/proofs/abc.jpeg", billing.ProofKindImage},
		{"https://files.example.com/pdf/sin-extension", billing.ProofKindImage},
	}
	v := billing.NewProofVerifier()
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			desc, err := v.Describe(&entity.Invoice{ProofFileURL: tt.url})
			require.NoError(t, err)
			assert.Equal(t, tt.url, desc.URL)
			assert.Equal(t, tt.kind, desc.Kind)
		})
	}
}

func TestProofVerifier_SinComprobante(t *testing.T) {
	_, err := billing.NewProofVerifier().Describe(&entity.Invoice{})
	assert.ErrorIs(t, err, domain.ErrMissingProof)
}
