package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testContact struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type testLine struct {
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	SKU      string          `json:"sku" validate:"required"`
	Quantity int             `json:"quantity" validate:"min=1"`
}

type testForm struct {
	Contact testContact `json:"contact"`
	Lines   []testLine  `json:"lines" validate:"required,min=1,dive"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		form       testForm
		wantFields []string
	}{
		{
			name: "valid",
			form: testForm{
				Contact: testContact{Name: "Ann"},
				Lines:   []testLine{{SKU: "a", Quantity: 1, Price: decimal.NewFromInt(3)}},
			},
		},
		{
			name:       "missing lines",
			form:       testForm{Contact: testContact{Name: "Ann"}},
			wantFields: []string{"lines"},
		},
		{
			name:       "empty lines",
			form:       testForm{Contact: testContact{Name: "Ann"}, Lines: []testLine{}},
			wantFields: []string{"lines"},
		},
		{
			name: "nested fields use json names",
			form: testForm{
				Contact: testContact{Email: "nope"},
				Lines:   []testLine{{SKU: "", Quantity: 0, Price: decimal.NewFromInt(-1)}},
			},
			wantFields: []string{"contact.name", "contact.email", "lines[0].price", "lines[0].sku", "lines[0].quantity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, err := v.Struct(tt.form)
			require.NoError(t, err)

			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Message)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}
