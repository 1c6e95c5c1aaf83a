package payroll

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateStatusRequest_PayPeriodKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "snake case", body: `{"pay_period":"2024-05","status":"PAID"}`, want: "2024-05"},
		{name: "camel case", body: `{"payPeriod":"2024-05","status":"PAID"}`, want: "2024-05"},
		{name: "both keys", body: `{"pay_period":"2024-05","payPeriod":"2024-04","status":"PAID"}`, want: "2024-05"},
		{name: "missing", body: `{"status":"PAID"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateStatusRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.PayPeriod)
			assert.Equal(t, "PAID", req.Status)
		})
	}
}

func TestUpdateStatusRequest_CamelCaseValidates(t *testing.T) {
	var req UpdateStatusRequest
	require.NoError(t, json.Unmarshal([]byte(`{"payPeriod":"2024-05","status":"processed"}`), &req))
	req.EmployeeID = testEmployeeID
	assert.NoError(t, req.Validate())
}
