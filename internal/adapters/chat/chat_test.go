package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	lastModel string
	lastText  string
	lastCfg   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastModel = model
	f.lastCfg = cfg
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.lastText = contents[0].Parts[0].Text
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp *genai.GenerateContentResponse
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeminiResponder(t *testing.T) {
	Convey("Given a responder over a fake model", t, func() {
		ctx := context.Background()
		models := &fakeModels{}
		r := newResponder(models, WithModel("gemini-test"), WithMaxMessageLen(20))
		r.retryDelay = 0

		Convey("When the model answers", func() {
			models.responses = []*genai.GenerateContentResponse{textResponse("  Hello! ", "", "Update your skills.")}
			reply, err := r.Reply(ctx, "  how do I match?  ")

			Convey("Then the text parts are joined and trimmed", func() {
				So(err, ShouldBeNil)
				So(reply, ShouldEqual, "Hello!\nUpdate your skills.")
				So(models.lastModel, ShouldEqual, "gemini-test")
				So(models.lastText, ShouldEqual, "how do I match?")
				So(models.lastCfg.SystemInstruction, ShouldNotBeNil)
			})
		})

		Convey("When the message is blank or too long", func() {
			_, err := r.Reply(ctx, "   ")
			So(errors.Is(err, ErrEmptyMessage), ShouldBeTrue)

			_, err = r.Reply(ctx, strings.Repeat("é", 21))
			So(errors.Is(err, ErrTooLong), ShouldBeTrue)
			So(models.calls, ShouldEqual, 0)
		})

		Convey("When the provider fails temporarily once", func() {
			models.errs = []error{genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}}
			models.responses = []*genai.GenerateContentResponse{nil, textResponse("ok")}

			reply, err := r.Reply(ctx, "hi")

			Convey("Then the call is retried", func() {
				So(err, ShouldBeNil)
				So(reply, ShouldEqual, "ok")
				So(models.calls, ShouldEqual, 2)
			})
		})

		Convey("When the caller gives up during the retry delay", func() {
			models.errs = []error{genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}}
			r.retryDelay = time.Hour
			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			_, err := r.Reply(cctx, "hi")

			Convey("Then it returns without waiting out the delay", func() {
				So(time.Since(start) < 5*time.Second, ShouldBeTrue)
				So(errors.Is(err, ErrUpstream), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(models.calls, ShouldEqual, 1)
			})
		})

		Convey("When the provider rejects the request", func() {
			models.errs = []error{genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}}

			_, err := r.Reply(ctx, "hi")

			Convey("Then it is an upstream error without retry", func() {
				So(errors.Is(err, ErrUpstream), ShouldBeTrue)
				So(models.calls, ShouldEqual, 1)
			})
		})

		Convey("When the provider returns nothing", func() {
			models.responses = []*genai.GenerateContentResponse{textResponse("  ")}
			_, err := r.Reply(ctx, "hi")
			So(errors.Is(err, ErrUpstream), ShouldBeTrue)
		})
	})
}

func TestNewGeminiResponder_RequiresKey(t *testing.T) {
	Convey("Given no API key", t, func() {
		_, err := NewGeminiResponder(context.Background(), "  ")
		So(errors.Is(err, ErrDisabled), ShouldBeTrue)
	})
}
