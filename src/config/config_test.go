package config

import (
	"context"
	"errors"
	"fms/src/types"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(mapEnv(nil))

	assert.Equal(t, types.Local, cfg.Server.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "firestore", cfg.Store.Backend)
	assert.Equal(t, int64(1000), cfg.Pricing.ExchangeValue)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.PendingPaymentTTL)
	assert.NotNil(t, cfg.Pricing.Location)
	assert.Equal(t, int64(5), cfg.Pricing.Policy().DiscountPercent(types.RANK_SILVER))
}

func TestFromEnvOverrides(t *testing.T) {
	cfg := FromEnv(mapEnv(map[string]string{
		"API_ENV":               "production",
		"MAINTENANCE_MODE":      "true",
		"STORE_BACKEND":         "postgres",
		"POINTS_EXCHANGE_VALUE": "500",
		"RANK_DISCOUNTS":        "bronze:1, Silver:4,gold:x,diamond:200",
		"PENDING_PAYMENT_TTL":   "45m",
		"DATABASE_HOST":         "db",
	}))

	assert.Equal(t, types.Production, cfg.Server.Env)
	assert.True(t, cfg.Server.Maintenance)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, 45*time.Minute, cfg.Jobs.PendingPaymentTTL)
	assert.Equal(t, map[types.Rank]int64{types.RANK_BRONZE: 1, types.RANK_SILVER: 4}, cfg.Pricing.RankDiscounts)
	assert.Contains(t, cfg.Database.DSN(), "host=db ")

	policy := cfg.Pricing.Policy()
	assert.Equal(t, int64(500), policy.ExchangeValue)
	assert.Equal(t, int64(1), policy.DiscountPercent("unknown"))
}

type fakeSecrets struct {
	value *string
	err   error
}

func (f fakeSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: params.SecretId, SecretString: f.value}, nil
}

func TestApplySecretsOverlaysCredentials(t *testing.T) {
	cfg := FromEnv(mapEnv(map[string]string{"VNPAY_HASH_SECRET": "from-env", "MOMO_ACCESS_KEY": "keep"}))
	secret := aws.String(`{"VNPAY_HASH_SECRET":"from-secret","STRIPE_WEBHOOK_SECRET":"whsec_1","MOMO_ACCESS_KEY":""}`)

	require.NoError(t, ApplySecrets(context.Background(), cfg, fakeSecrets{value: secret}, "fms/payments"))
	assert.Equal(t, "from-secret", cfg.VNPay.HashSecret)
	assert.Equal(t, "whsec_1", cfg.Stripe.WebhookSecret)
	assert.Equal(t, "keep", cfg.MoMo.AccessKey)
}

func TestApplySecretsErrors(t *testing.T) {
	cfg := FromEnv(mapEnv(nil))
	err := ApplySecrets(context.Background(), cfg, fakeSecrets{err: errors.New("denied")}, "fms/payments")
	assert.ErrorContains(t, err, "denied")

	err = ApplySecrets(context.Background(), cfg, fakeSecrets{value: aws.String("not json")}, "fms/payments")
	assert.Error(t, err)
}
