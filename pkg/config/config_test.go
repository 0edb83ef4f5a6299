package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, c.Env)
	assert.Equal(t, 8888, c.Server.Port)
	assert.Equal(t, "USD", c.Payment.Currency)
	assert.Equal(t, []string{"COMPLETE", "SUCCESS", "AUTHRECEIVED"}, c.Payment.SuccessStatuses)
	assert.Equal(t, "design-templates", c.Storage.TemplateBucket)
	assert.Equal(t, "order-attachments", c.Storage.AttachmentsBucket)
}

func TestPaymentConfig_IsSuccessStatus(t *testing.T) {
	p := &PaymentConfig{SuccessStatuses: []string{"COMPLETE", "SUCCESS", "AUTHRECEIVED"}}

	cases := []struct {
		status string
		want   bool
	}{
		{"COMPLETE", true},
		{"complete", true},
		{"AuthReceived", true},
		{"PENDING", false},
		{"REFUND", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p.IsSuccessStatus(tc.status), tc.status)
	}
}
