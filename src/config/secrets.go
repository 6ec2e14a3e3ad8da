package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func NewSecretsClient(ctx context.Context) (*secretsmanager.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("[Config] Could not load default AWS config: %s\n", err.Error())
		return nil, err
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// ApplySecrets overlays credentials from a JSON secret. Keys use the same
// names as the environment variables they replace.
func ApplySecrets(ctx context.Context, cfg *Config, client SecretsClient, secretID string) error {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return fmt.Errorf("fetching secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", secretID)
	}
	values := map[string]string{}
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return fmt.Errorf("decoding secret %s: %w", secretID, err)
	}

	targets := map[string]*string{
		"JWT_SECRET":            &cfg.Auth.JWTSecret,
		"DATABASE_PASSWORD":     &cfg.Database.Password,
		"SMTP_PASSWORD":         &cfg.SMTP.Password,
		"VNPAY_TMN_CODE":        &cfg.VNPay.TmnCode,
		"VNPAY_HASH_SECRET":     &cfg.VNPay.HashSecret,
		"MOMO_PARTNER_CODE":     &cfg.MoMo.PartnerCode,
		"MOMO_ACCESS_KEY":       &cfg.MoMo.AccessKey,
		"MOMO_SECRET_KEY":       &cfg.MoMo.SecretKey,
		"STRIPE_SECRET_KEY":     &cfg.Stripe.SecretKey,
		"STRIPE_WEBHOOK_SECRET": &cfg.Stripe.WebhookSecret,
	}
	applied := 0
	for key, target := range targets {
		if v, ok := values[key]; ok && v != "" {
			*target = v
			applied++
		}
	}
	log.Printf("[Config] applied %d values from secret %s\n", applied, secretID)
	return nil
}
