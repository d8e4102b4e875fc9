package asr

import (
	"context"
	"fmt"
	"log"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// StreamConfig describes one Google streaming recognition session.
type StreamConfig struct {
	LanguageCode    string
	SampleRateHertz int32
	Encoding        speechpb.RecognitionConfig_AudioEncoding
	PhraseHints     []string
	Boost           float32
}

// phraseBoost is a moderate boost for the domain phrase-hints list; high
// values make the recognizer hallucinate hint phrases.
const phraseBoost = 15.0

// NewGoogleFactory returns a StreamFactory backed by the Cloud Speech
// streaming API, configured with automatic punctuation and the enhanced
// long-form model.
func NewGoogleFactory(client *speech.Client, cfg StreamConfig, logger *log.Logger) StreamFactory {
	return func(ctx context.Context) (RecognizeStream, error) {
		sr, err := client.StreamingRecognize(ctx)
		if err != nil {
			return nil, fmt.Errorf("asr: open stream: %w", err)
		}

		boost := cfg.Boost
		if boost == 0 {
			boost = phraseBoost
		}

		recognition := &speechpb.RecognitionConfig{
			Encoding:                   cfg.Encoding,
			SampleRateHertz:            cfg.SampleRateHertz,
			LanguageCode:               cfg.LanguageCode,
			EnableAutomaticPunctuation: true,
			Model:                      "latest_long",
			UseEnhanced:                true,
		}
		if len(cfg.PhraseHints) > 0 {
			recognition.SpeechContexts = []*speechpb.SpeechContext{
				{Phrases: cfg.PhraseHints, Boost: boost},
			}
		}

		if err := sr.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
				StreamingConfig: &speechpb.StreamingRecognitionConfig{
					Config:         recognition,
					InterimResults: true,
				},
			},
		}); err != nil {
			return nil, fmt.Errorf("asr: send config: %w", err)
		}

		gs := &googleStream{
			sr:      sr,
			results: make(chan TranscriptResult, 100),
			errors:  make(chan error, 10),
			done:    make(chan struct{}),
			logger:  logger,
		}
		gs.wg.Add(1)
		go gs.readLoop()
		return gs, nil
	}
}

type googleStream struct {
	sr        speechpb.Speech_StreamingRecognizeClient
	results   chan TranscriptResult
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	wg        sync.WaitGroup
	logger    *log.Logger
}

func (g *googleStream) Send(chunk []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.done:
		return fmt.Errorf("asr: stream is closed")
	default:
	}

	return g.sr.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
}

func (g *googleStream) Results() <-chan TranscriptResult { return g.results }

func (g *googleStream) Errors() <-chan error { return g.errors }

func (g *googleStream) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)

		g.mu.Lock()
		err = g.sr.CloseSend()
		g.mu.Unlock()

		g.wg.Wait()
		close(g.results)
		close(g.errors)
	})
	return err
}

func (g *googleStream) readLoop() {
	defer g.wg.Done()

	for {
		select {
		case <-g.done:
			return
		default:
		}

		resp, err := g.sr.Recv()
		if err != nil {
			select {
			case <-g.done:
			case g.errors <- err:
			default:
			}
			return
		}

		if resp.GetError() != nil {
			select {
			case <-g.done:
				return
			case g.errors <- fmt.Errorf("asr: %s", resp.GetError().GetMessage()):
			default:
			}
			continue
		}

		for _, res := range resp.GetResults() {
			if len(res.GetAlternatives()) == 0 {
				continue
			}
			text := res.GetAlternatives()[0].GetTranscript()
			if text == "" && !res.GetIsFinal() {
				continue
			}
			select {
			case <-g.done:
				return
			case g.results <- TranscriptResult{Text: text, IsFinal: res.GetIsFinal()}:
			}
		}
	}
}
