package reason

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionValidate(t *testing.T) {
	valid := func() *Decision {
		return &Decision{
			Classification: ClassUpdateSpec,
			Confidence:     0.9,
			Changes: []ChangeInstruction{{
				Target:             "/components/schemas/User/properties/status/enum/-",
				Op:                 OpAdd,
				Value:              "archived",
				Rationale:          "observed in live responses",
				BackwardCompatible: true,
				Type:               ChangeAddEnumValue,
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Decision)
		wantErr string
	}{
		{"valid", func(*Decision) {}, ""},
		{"unknown classification", func(d *Decision) { d.Classification = "MAYBE" }, "unknown classification"},
		{"confidence above one", func(d *Decision) { d.Confidence = 1.2 }, "outside [0,1]"},
		{"negative confidence", func(d *Decision) { d.Confidence = -0.1 }, "outside [0,1]"},
		{
			"changes on API_BUG",
			func(d *Decision) { d.Classification = ClassAPIBug },
			"must not carry changes",
		},
		{
			"relative target",
			func(d *Decision) { d.Changes[0].Target = "components/x" },
			"not a JSON pointer",
		},
		{"unknown op", func(d *Decision) { d.Changes[0].Op = "patch" }, "unknown operation"},
		{
			"add without value",
			func(d *Decision) { d.Changes[0].Value = nil },
			"requires a value",
		},
		{
			"remove with value",
			func(d *Decision) { d.Changes[0].Op = OpRemove },
			"must not carry a value",
		},
		{
			"unknown change type",
			func(d *Decision) { d.Changes[0].Type = "RENAME_FIELD" },
			"unknown change type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDecisionValidateOptionalChangeType(t *testing.T) {
	d := &Decision{
		Classification: ClassUpdateSpec,
		Confidence:     0.9,
		Changes: []ChangeInstruction{{
			Target: "/info/description",
			Op:     OpReplace,
			Value:  "updated",
		}},
	}
	assert.NoError(t, d.Validate(), "change_type may be omitted")
}

func TestNeedsReview(t *testing.T) {
	d := NeedsReview("response was prose")
	assert.Equal(t, ClassNeedsReview, d.Classification)
	assert.Zero(t, d.Confidence)
	assert.True(t, d.ContractViolation)
	assert.NoError(t, d.Validate())
}
