package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/okian/vmatch/internal/domain/model"
)

// SESService is the slice of the SES client used for email delivery.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the slice of the SNS client used for topic delivery.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SESNotifier emails the recipient through Amazon SES.
type SESNotifier struct {
	client SESService
	from   string
}

// NewSESNotifier creates an SES notifier sending from the given address.
func NewSESNotifier(client SESService, from string) *SESNotifier {
	return &SESNotifier{client: client, from: from}
}

// Channel implements Notifier.
func (n *SESNotifier) Channel() string { return ChannelSES }

// Notify implements Notifier. Notifications without an email address are rejected.
func (n *SESNotifier) Notify(ctx context.Context, msg model.Notification) error { //nolint:gocritic // hugeParam: mirrors Notifier
	if msg.RecipientEmail == "" {
		return fmt.Errorf("%w: %s has no email", ErrNoRecipient, msg.RecipientID)
	}
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.RecipientEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(msg.Title)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(msg.Message)},
				Html: &sestypes.Content{Data: aws.String("<p>" + html.EscapeString(msg.Message) + "</p>")},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.RecipientID, err)
	}
	return nil
}

// SNSNotifier publishes notifications as JSON to an SNS topic. Subscribers
// filter on the recipient_id and type message attributes.
type SNSNotifier struct {
	client   SNSService
	topicARN string
}

// NewSNSNotifier creates an SNS notifier for the topic.
func NewSNSNotifier(client SNSService, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// Channel implements Notifier.
func (n *SNSNotifier) Channel() string { return ChannelSNS }

// Notify implements Notifier.
func (n *SNSNotifier) Notify(ctx context.Context, msg model.Notification) error { //nolint:gocritic // hugeParam: mirrors Notifier
	if msg.RecipientID == "" {
		return fmt.Errorf("%w: empty recipient id", ErrNoRecipient)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", msg.ID, err)
	}
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(msg.Title),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"recipient_id": {DataType: aws.String("String"), StringValue: aws.String(msg.RecipientID)},
			"type":         {DataType: aws.String("String"), StringValue: aws.String(string(msg.Type))},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish for %s: %w", msg.RecipientID, err)
	}
	return nil
}
