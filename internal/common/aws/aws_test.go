package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct{ mock.Mock }

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendEmailOutput), args.Error(1)
}

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func TestSESClient_SendEmail(t *testing.T) {
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return awssdk.ToString(in.Source) == "matches@example.com" &&
			in.Destination.ToAddresses[0] == "dev@example.com" &&
			awssdk.ToString(in.Message.Subject.Data) == "New project match" &&
			in.Message.Body.Html == nil
	})).Return(&ses.SendEmailOutput{MessageId: awssdk.String("msg-1")}, nil)

	id, err := NewSESClientWithAPI(api, "matches@example.com").
		SendEmail(context.Background(), "dev@example.com", "New project match", "hello", "")

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	api.AssertExpectations(t)
}

func TestSESClient_SendEmailError(t *testing.T) {
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("Throttling"))

	_, err := NewSESClientWithAPI(api, "matches@example.com").
		SendEmail(context.Background(), "dev@example.com", "s", "b", "<p>b</p>")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttling")
}

func TestSNSClient_SendSMS(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		sender, ok := in.MessageAttributes["AWS.SNS.SMS.SenderID"]
		return ok && awssdk.ToString(sender.StringValue) == "TALENT" &&
			awssdk.ToString(in.PhoneNumber) == "+15550100"
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("sms-1")}, nil)

	id, err := NewSNSClientWithAPI(api, "TALENT").SendSMS(context.Background(), "+15550100", "You matched")

	require.NoError(t, err)
	assert.Equal(t, "sms-1", id)
	api.AssertExpectations(t)
}
