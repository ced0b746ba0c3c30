package asr

import (
	"context"
	"errors"
	"io"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: 16000,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) TranscribeStream(ctx context.Context, audioPath string, params models.WhisperParams) (<-chan models.TranscriptionChunk, <-chan error) {
	out := make(chan models.TranscriptionChunk)
	errs := make(chan error, 1)

	language := params.Language
	if language == "" {
		language = "en-US"
	}

	go func() {
		defer close(out)
		defer close(errs)

		f, err := os.Open(audioPath)
		if err != nil {
			errs <- err
			return
		}
		defer f.Close()

		stream, err := g.c.StreamingRecognize(ctx)
		if err != nil {
			errs <- err
			return
		}

		cfg := &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		}
		if params.Model != "" {
			cfg.Model = params.Model
		}
		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
				StreamingConfig: &speechpb.StreamingRecognitionConfig{
					Config:         cfg,
					InterimResults: false,
				},
			},
		}); err != nil {
			errs <- err
			return
		}

		sendDone := make(chan error, 1)
		go func() {
			defer close(sendDone)
			buf := make([]byte, 32*1024)
			for {
				n, rerr := f.Read(buf)
				if n > 0 {
					if serr := stream.Send(&speechpb.StreamingRecognizeRequest{
						StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
							AudioContent: buf[:n],
						},
					}); serr != nil {
						sendDone <- serr
						return
					}
				}
				if errors.Is(rerr, io.EOF) {
					sendDone <- stream.CloseSend()
					return
				}
				if rerr != nil {
					sendDone <- rerr
					return
				}
			}
		}()

		var lastEnd float64
		for {
			resp, rerr := stream.Recv()
			if errors.Is(rerr, io.EOF) {
				break
			}
			if rerr != nil {
				errs <- rerr
				return
			}

			for _, result := range resp.Results {
				if !result.IsFinal || len(result.Alternatives) == 0 {
					continue
				}
				alt := result.Alternatives[0]
				end := result.ResultEndTime.AsDuration().Seconds()

				chunk := models.TranscriptionChunk{
					Text: alt.Transcript,
					Segments: []models.TranscriptSegment{{
						Text:      alt.Transcript,
						StartTime: lastEnd,
						EndTime:   end,
					}},
					Info: models.TranscriptionInfo{
						Language:           result.LanguageCode,
						LanguageConfidence: float64(alt.Confidence),
					},
				}
				lastEnd = end

				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}

		if serr := <-sendDone; serr != nil {
			errs <- serr
		}
	}()

	return out, errs
}
