package lib

import (
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACSHA256Hex(t *testing.T) {
	sig := HMACSHA256Hex("secret", "a=1&b=2")
	assert.Len(t, sig, 64)
	assert.True(t, VerifyHMACSHA256Hex("secret", "a=1&b=2", sig))
	assert.True(t, VerifyHMACSHA256Hex("secret", "a=1&b=2", upper(sig)))
	assert.False(t, VerifyHMACSHA256Hex("secret", "a=1&b=3", sig))
	assert.False(t, VerifyHMACSHA256Hex("secret", "a=1&b=2", "zz"))
}

func upper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

func TestRenderQRCode(t *testing.T) {
	img, err := RenderQRCode("https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?vnp_TxnRef=pay-1")
	require.NoError(t, err)
	assert.NotEmpty(t, img)
}

func TestBuildMessage(t *testing.T) {
	msg, err := BuildMessage(&SendMailInput{
		From:     "no-reply@fms.local",
		FromName: "Facility Services",
		To:       []string{"an@example.com"},
		Subject:  "Payment received",
		Body:     "Thanks",
	})
	require.NoError(t, err)
	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"an@example.com"}, to)

	_, err = BuildMessage(&SendMailInput{From: "not an address", To: []string{"an@example.com"}})
	assert.Error(t, err)
}

func TestCreateDurationJob(t *testing.T) {
	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	NewScheduler(sched)
	defer func() {
		_ = sched.Shutdown()
		scheduler = nil
	}()

	id, err := CreateDurationJob("expire-reservations", time.Hour, func() {})
	require.NoError(t, err)
	assert.NotEmpty(t, *id)
	_, err = CreateDailyJob("daily-report", 1, func(day string) {}, "2026-10-18")
	require.NoError(t, err)

	jobs := sched.Jobs()
	require.Len(t, jobs, 2)
	names := []string{jobs[0].Name(), jobs[1].Name()}
	assert.ElementsMatch(t, []string{"expire-reservations", "daily-report"}, names)
}
