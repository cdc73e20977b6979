// Package live implements a real-time, full-duplex voice session engine.
//
// The engine streams microphone audio to a remote conversational speech
// service while simultaneously decoding and playing the assistant's audio
// replies, with transcript accumulation and bidirectional talk-state
// tracking.
//
// # Architecture
//
// The package provides several core components:
//
//   - SessionController: The orchestrator owning the connection state machine
//   - CaptureProcessor: Converts raw capture frames into outbound payloads
//   - TalkActivityDetector: Energy-based user talk detection with hold decay
//   - PlaybackScheduler: Gapless back-to-back timeline for assistant audio
//   - TranscriptAggregator: Append-only, arrival-order message log
//
// # Data Flow
//
//	Mic Frames → CaptureProcessor → 16-bit PCM → Remote Session
//	      │
//	      └── TalkActivityDetector (user talking flag)
//
//	Remote Session → PlaybackScheduler → Output Device
//	      │                 │
//	      │                 └── assistant talking flag, barge-in interrupt
//	      └── TranscriptAggregator (user + model fragments)
//
// # State Machine
//
// The controller progresses through these states:
//
//	Idle → Connecting → Open → Closing → Idle
//	         │            │
//	         └── Failed ←─┘  (then → Idle)
//
// # Usage
//
//	cfg := live.DefaultSessionConfig()
//	ctrl := live.NewSessionController(cfg, dialer, devices)
//
//	if err := ctrl.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range ctrl.Events() {
//	    switch e := event.(type) {
//	    case *live.MessageAppendedEvent:
//	        fmt.Printf("%s: %s\n", e.Message.Role, e.Message.Text)
//	    case *live.PlaybackInterruptedEvent:
//	        fmt.Println("(interrupted)")
//	    }
//	}
package live
