package privacy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	p, err := New("test-secret")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestExternalIDDeterministic(t *testing.T) {
	p, err := New("test-secret")
	require.NoError(t, err)

	customerID := id.NewCustomerID()
	businessID := id.NewBusinessID()

	first := p.ExternalID(customerID, businessID)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.ExternalID(customerID, businessID))
	}

	// Same key derivation across instances with the same secret.
	p2, err := New("test-secret")
	require.NoError(t, err)
	assert.Equal(t, first, p2.ExternalID(customerID, businessID))
}

func TestExternalIDDistinct(t *testing.T) {
	p, err := New("test-secret")
	require.NoError(t, err)

	businessID := id.NewBusinessID()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		extID := p.ExternalID(id.NewCustomerID(), businessID)
		assert.False(t, seen[extID], "external IDs must differ across customers")
		seen[extID] = true
	}

	// Same customer, different business also differs.
	customerID := id.NewCustomerID()
	assert.NotEqual(t,
		p.ExternalID(customerID, id.NewBusinessID()),
		p.ExternalID(customerID, id.NewBusinessID()),
	)
}

func TestExternalIDDependsOnSecret(t *testing.T) {
	a, err := New("secret-a")
	require.NoError(t, err)
	b, err := New("secret-b")
	require.NoError(t, err)

	customerID := id.NewCustomerID()
	businessID := id.NewBusinessID()
	assert.NotEqual(t, a.ExternalID(customerID, businessID), b.ExternalID(customerID, businessID))
}

func TestEnvelopeMinimization(t *testing.T) {
	p, err := New("test-secret")
	require.NoError(t, err)

	granted := time.Now()
	customer := &models.Customer{
		ID:               id.NewCustomerID(),
		BusinessID:       id.NewBusinessID(),
		FirstName:        "Maria",
		LastName:         "Silva",
		Phone:            "+5511999990000",
		Email:            "maria@example.com",
		ConsentGrantedAt: &granted,
	}

	env := p.Envelope(customer)
	assert.Equal(t, p.ExternalID(customer.ID, customer.BusinessID), env.ExternalID)
	assert.Equal(t, "Maria", env.DisplayFirstName)
	assert.Equal(t, "+5511999990000", env.Phone)
	assert.Equal(t, "maria@example.com", env.Email)
	// The raw customer ID never appears in the outbound payload.
	assert.NotContains(t, env.ExternalID, customer.ID.String())
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "*"},
		{"ab", "a*"},
		{"abc", "a*c"},
		{"Maria", "M***a"},
		{"+5511999990000", "+************0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mask(tt.in), "Mask(%q)", tt.in)
	}
}

// assertInteriorMasked asserts the masking property: everything between
// the first and last character is replaced.
func assertInteriorMasked(t *testing.T, out string) {
	t.Helper()
	if len(out) <= 2 {
		return
	}
	interior := out[1 : len(out)-1]
	assert.Equal(t, strings.Repeat("*", len(interior)), interior, "interior of %q not fully masked", out)
}

func TestMaskEmail(t *testing.T) {
	masked := MaskEmail("maria.silva@example.com")
	assert.Equal(t, "m*********a@e*********m", masked)
	for _, part := range strings.SplitN(masked, "@", 2) {
		assertInteriorMasked(t, part)
	}

	// Degenerate inputs fall back to plain masking.
	assert.Equal(t, "n******l", MaskEmail("no-at-al"))
	assert.Equal(t, "*", MaskEmail("@"))
}

func TestMaskDetails(t *testing.T) {
	details := map[string]string{
		"name":  "Maria Silva",
		"email": "maria@example.com",
		"phone": "+5511999990000",
	}
	masked := MaskDetails(details)
	assert.Equal(t, "M*********a", masked["name"])
	assert.Equal(t, "m***a@e*********m", masked["email"])
	assert.Equal(t, "+************0", masked["phone"])

	assert.Nil(t, MaskDetails(nil))
}
