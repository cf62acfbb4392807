package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// loadAWSConfig resolves an AWS config for t. Static keys are used when both
// are set; otherwise the default credential chain applies.
func loadAWSConfig(ctx context.Context, t AWSTarget) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(t.Region)}
	if t.AccessKeyID != "" && t.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(t.AccessKeyID, t.SecretAccessKey, "")
		opts = append(opts, awscfg.WithCredentialsProvider(creds))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

type sqsSender struct {
	queueURL string
	client   sqsClient
}

func newSQSSender(ctx context.Context, qc QueueConfig) (queueSender, error) {
	if qc.SQS == nil {
		return nil, fmt.Errorf("sqs configuration is missing")
	}
	cfg, err := loadAWSConfig(ctx, qc.SQS.AWSTarget)
	if err != nil {
		return nil, err
	}
	return &sqsSender{queueURL: qc.SQS.QueueURL, client: sqs.NewFromConfig(cfg)}, nil
}

func (s *sqsSender) Send(ctx context.Context, payload []byte, attrs map[string]string) (string, error) {
	values := make(map[string]sqstypes.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		values[k] = sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	resp, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: values,
	})
	if err != nil {
		return "", fmt.Errorf("send message to sqs: %w", err)
	}
	return aws.ToString(resp.MessageId), nil
}

type snsSender struct {
	topicARN string
	client   snsClient
}

func newSNSSender(ctx context.Context, qc QueueConfig) (queueSender, error) {
	if qc.SNS == nil {
		return nil, fmt.Errorf("sns configuration is missing")
	}
	cfg, err := loadAWSConfig(ctx, qc.SNS.AWSTarget)
	if err != nil {
		return nil, err
	}
	return &snsSender{topicARN: qc.SNS.TopicARN, client: sns.NewFromConfig(cfg)}, nil
}

func (s *snsSender) Send(ctx context.Context, payload []byte, attrs map[string]string) (string, error) {
	values := make(map[string]snstypes.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		values[k] = snstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	resp, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: values,
	})
	if err != nil {
		return "", fmt.Errorf("publish to sns: %w", err)
	}
	return aws.ToString(resp.MessageId), nil
}
