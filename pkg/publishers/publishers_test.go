package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
)

func sampleEvent() Event {
	c := domain.Collection{
		LastUpdated: "2024-05-02",
		News:        []domain.Article{{Title: "B", Summary: "s2", Date: "2024-05-01", Source: "Y", URL: "u2"}},
	}
	return NewDigestEvent(c, "2024-05-01", "dist/news_data.json", time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC))
}

func TestNewDigestEvent(t *testing.T) {
	evt := sampleEvent()
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, EventTypeDigestUpdated, evt.Type)
	assert.Equal(t, "2024-05-01", evt.TargetDate)
	assert.Equal(t, 1, evt.Articles)
	assert.Equal(t, []string{"B"}, evt.Titles)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	t.Setenv("HOOK_TOKEN", "secret")
	require.NoError(t, os.WriteFile(path, []byte(`
publishers:
  - id: site-hook
    type: HTTP
    http:
      url: https://hooks.example.com/digest
      headers:
        Authorization: Bearer ${HOOK_TOKEN}
  - id: fanout
    type: queue
    enabled: false
    queue:
      provider: aws-sqs
      sqs:
        queue_url: https://sqs.eu-west-1.amazonaws.com/1/digest
        region: eu-west-1
`), 0o644))

	cfgs, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	hook := cfgs[0]
	assert.Equal(t, TypeHTTP, hook.Type)
	assert.Equal(t, "POST", hook.HTTP.Method)
	assert.Equal(t, httpDefaultTimeoutSeconds, hook.HTTP.TimeoutSeconds)
	assert.Equal(t, "Bearer secret", hook.HTTP.Headers["Authorization"])

	assert.Equal(t, "eu-west-1", cfgs[1].Queue.SQS.Region)

	enabled := Enabled(cfgs)
	require.Len(t, enabled, 1)
	assert.Equal(t, "site-hook", enabled[0].ID)
}

func TestLoadConfigRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"half credentials": `{"publishers":[{"id":"q","type":"queue","queue":{"provider":"aws-sns","sns":{"topic_arn":"arn:aws:sns:eu-west-1:1:t","region":"eu-west-1","access_key_id":"AKIA"}}}]}`,
		"duplicate id":     `{"publishers":[{"id":"a","type":"http","http":{"url":"https://x"}},{"id":"a","type":"http","http":{"url":"https://y"}}]}`,
		"unknown provider": `{"publishers":[{"id":"q","type":"queue","queue":{"provider":"azure"}}]}`,
		"missing url":      `{"publishers":[{"id":"h","type":"http","http":{}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "publishers.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
}

func TestLoadBuildsEnabledPublishers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
publishers:
  - id: hook
    type: http
    http:
      url: http://127.0.0.1:1/hook
  - id: off
    type: http
    enabled: false
    http:
      url: http://127.0.0.1:1/off
`), 0o644))

	pubs, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "hook", pubs[0].ID())
	assert.Equal(t, TypeHTTP, pubs[0].Type())
}

func TestHTTPPublisherPostsEvent(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "t", r.Header.Get("X-Token"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pubs, err := DefaultBuilders().Build(context.Background(), []PublisherConfig{
		sanitizePublisherConfig(PublisherConfig{ID: "hook", Type: "http", HTTP: &HTTPConfig{URL: srv.URL, Headers: map[string]string{"X-Token": "t"}}}),
	}, nil)
	require.NoError(t, err)
	require.Len(t, pubs, 1)

	evt := sampleEvent()
	require.NoError(t, PublishAll(context.Background(), pubs, evt, nil))
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, []string{"B"}, got.Titles)
}

func TestHTTPPublisherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{ID: "hook", Type: TypeHTTP, HTTP: &HTTPConfig{URL: srv.URL}}, nil)
	require.NoError(t, err)

	err = pub.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type stubPublisher struct {
	id   string
	err  error
	sent []Event
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return "stub" }
func (s *stubPublisher) Publish(_ context.Context, evt Event) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, evt)
	return nil
}

func TestPublishAllContinuesPastFailures(t *testing.T) {
	bad := &stubPublisher{id: "bad", err: errors.New("down")}
	good := &stubPublisher{id: "good"}

	err := PublishAll(context.Background(), []Publisher{bad, good}, sampleEvent(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher bad")
	assert.Len(t, good.sent, 1)
}

type fakeSQS struct {
	input *sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestQueuePublisherSendsAttributes(t *testing.T) {
	client := &fakeSQS{}
	pub := &queuePublisher{
		id:       "q",
		provider: QueueProviderAWSSQS,
		sender:   &sqsSender{queueURL: "https://sqs/queue", client: client},
		log:      ensureLogger(nil),
	}

	evt := sampleEvent()
	require.NoError(t, pub.Publish(context.Background(), evt))

	require.NotNil(t, client.input)
	assert.Equal(t, "https://sqs/queue", aws.ToString(client.input.QueueUrl))
	assert.Equal(t, "2024-05-01", aws.ToString(client.input.MessageAttributes["target_date"].StringValue))
	assert.Equal(t, EventTypeDigestUpdated, aws.ToString(client.input.MessageAttributes["event_type"].StringValue))

	var body Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &body))
	assert.Equal(t, evt.ID, body.ID)
}

type fakeSNS struct {
	err error
}

func (f *fakeSNS) Publish(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return nil, f.err
}

func TestQueuePublisherWrapsSendError(t *testing.T) {
	pub := &queuePublisher{
		id:       "topic",
		provider: QueueProviderAWSSNS,
		sender:   &snsSender{topicARN: "arn:aws:sns:eu-west-1:1:t", client: &fakeSNS{err: errors.New("throttled")}},
		log:      ensureLogger(nil),
	}

	err := pub.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aws-sns send failed")
	assert.Contains(t, err.Error(), "throttled")
}
