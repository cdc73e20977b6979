package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"google.golang.org/genai"
)

// GeminiDialer connects directly to the Gemini Live API.
type GeminiDialer struct {
	// APIKey authenticates against the Gemini API.
	APIKey string
}

// Dial establishes a live session and starts the receive loop.
func (d *GeminiDialer) Dial(ctx context.Context, config Config, callbacks Callbacks) (Session, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  d.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	cfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if config.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(config.System, genai.RoleUser)
	}
	if config.Voice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: config.Voice},
			},
		}
	}

	live, err := client.Live.Connect(ctx, config.Model, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect live session: %w", err)
	}

	s := &geminiSession{
		session:   live,
		callbacks: callbacks,
	}
	go s.receiveLoop()
	return s, nil
}

// geminiSession wraps one open Gemini Live session. The receive loop is the
// single goroutine invoking callbacks.
type geminiSession struct {
	session   *genai.Session
	callbacks Callbacks
	closed    atomic.Bool
}

func (s *geminiSession) SendAudio(data []byte, mimeType string) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: data, MIMEType: mimeType},
	})
}

func (s *geminiSession) SendText(text string) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	return s.session.SendClientContent(textTurn(text))
}

// textTurn builds the client content payload for a text-only user turn.
// The turn is marked complete so the model replies immediately.
func textTurn(text string) genai.LiveClientContentInput {
	return genai.LiveClientContentInput{
		Turns:        []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		TurnComplete: genai.Ptr(true),
	}
}

func (s *geminiSession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.session.Close()
}

func (s *geminiSession) receiveLoop() {
	for {
		msg, err := s.session.Receive()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.closed.Store(true)
			if errors.Is(err, io.EOF) {
				if s.callbacks.OnClose != nil {
					s.callbacks.OnClose()
				}
			} else if s.callbacks.OnError != nil {
				s.callbacks.OnError(err)
			}
			return
		}
		if msg == nil || msg.ServerContent == nil {
			continue
		}

		sc := msg.ServerContent
		out := ServerMessage{
			Interrupted:  sc.Interrupted,
			TurnComplete: sc.TurnComplete,
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					out.Audio = append(out.Audio, part.InlineData.Data...)
				}
			}
		}
		if sc.InputTranscription != nil {
			out.InputTranscript = sc.InputTranscription.Text
		}
		if sc.OutputTranscription != nil {
			out.OutputTranscript = sc.OutputTranscription.Text
		}

		if s.callbacks.OnMessage != nil {
			s.callbacks.OnMessage(out)
		}
	}
}
