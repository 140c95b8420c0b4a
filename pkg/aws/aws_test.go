package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_PublishWithType(t *testing.T) {
	api := &fakeSNS{}
	client := &SNSClient{client: api}

	err := client.PublishWithType(context.Background(), "arn:aws:sns:eu-central-1:000000000000:orders", "order.created", []byte(`{"ok":true}`))
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)

	in := api.inputs[0]
	assert.Equal(t, `{"ok":true}`, *in.Message)
	assert.Equal(t, "order.created", *in.MessageAttributes["event_type"].StringValue)
}

func TestSNSClient_Publish_EmptyTopic(t *testing.T) {
	api := &fakeSNS{}
	client := &SNSClient{client: api}

	err := client.Publish(context.Background(), "", []byte("x"))
	assert.Error(t, err)
	assert.Empty(t, api.inputs)
}

func TestSNSClient_Publish_WrapsError(t *testing.T) {
	api := &fakeSNS{err: errors.New("throttled")}
	client := &SNSClient{client: api}

	err := client.Publish(context.Background(), "arn:topic", []byte("x"))
	assert.ErrorContains(t, err, "throttled")
}

type fakeSecrets struct {
	calls  int
	values map[string]string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &v}, nil
}

func TestSecretsClient_CachesValues(t *testing.T) {
	api := &fakeSecrets{values: map[string]string{
		"checkout/PAYTR_CREDENTIALS": `{"PAYTR_MERCHANT_KEY":"k","PAYTR_MERCHANT_SALT":"s"}`,
	}}
	client := newSecretsClient(api)

	m, err := client.GetSecretMap(context.Background(), "checkout/PAYTR_CREDENTIALS")
	require.NoError(t, err)
	assert.Equal(t, "k", m["PAYTR_MERCHANT_KEY"])

	_, err = client.GetSecret(context.Background(), "checkout/PAYTR_CREDENTIALS")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)
}

func TestSecretsClient_Missing(t *testing.T) {
	client := newSecretsClient(&fakeSecrets{values: map[string]string{}})

	_, err := client.GetSecret(context.Background(), "nope")
	assert.Error(t, err)
}

func TestLoadAWSConfig_LocalStackOverrides(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ENDPOINT", "http://localstack:4566")
	t.Setenv("AWS_SNS_ENDPOINT", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, err := LoadAWSConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localstack:4566", *cfg.BaseEndpoint)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}
