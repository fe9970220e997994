// Package notify delivers notifications over a configured channel.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
)

// Delivery channels.
const (
	ChannelLog = "log"
	ChannelSES = "ses"
	ChannelSNS = "sns"
)

// Sentinel kinds for notifier errors.
var (
	ErrUnknownChannel = errors.New("unknown notification channel")
	ErrNoRecipient    = errors.New("notification has no deliverable recipient")
	ErrMissingConfig  = errors.New("notification channel is not configured")
)

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
	Channel() string
}

// Config selects and configures the channel.
type Config struct {
	Channel   string
	AWSRegion string
	FromEmail string
	TopicARN  string
}

// New builds the notifier for cfg.Channel. AWS channels load credentials from the
// default chain.
func New(ctx context.Context, cfg Config, log logger.Logger) (Notifier, error) {
	switch cfg.Channel {
	case "", ChannelLog:
		return NewLogNotifier(log), nil
	case ChannelSES, ChannelSNS:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, cfg.Channel)
	}

	awsCfg, err := loadAWS(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	if cfg.Channel == ChannelSES {
		if cfg.FromEmail == "" {
			return nil, fmt.Errorf("%w: ses requires from_email", ErrMissingConfig)
		}
		return NewSESNotifier(ses.NewFromConfig(awsCfg), cfg.FromEmail), nil
	}
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("%w: sns requires topic_arn", ErrMissingConfig)
	}
	return NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.TopicARN), nil
}

func loadAWS(ctx context.Context, region string) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger discards output.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogNotifier{logger: l}
}

// Channel implements Notifier.
func (n *LogNotifier) Channel() string { return ChannelLog }

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, msg model.Notification) error { //nolint:gocritic // hugeParam: mirrors Notifier
	n.logger.Info(ctx, "notification",
		logger.String("id", msg.ID),
		logger.String("recipient_id", msg.RecipientID),
		logger.String("type", string(msg.Type)),
		logger.String("title", msg.Title),
		logger.String("message", msg.Message),
		logger.Any("data", msg.Data),
	)
	return nil
}
