// Package voicefx implements the real-time effect-processing and streaming
// core of a voice-communication application.
//
// The package ties three subsystems together behind one Engine facade:
//
//   - dsp: per-sample effect processing units (reverb, compressor,
//     equalizer, delay, chorus, distortion, pitch shifter, vocoder) built
//     on fixed-capacity ring buffers and envelope followers.
//   - plugin: the instance manager that creates and destroys units, binds
//     them into a channel's signal path, and routes parameter and preset
//     updates, applied only at block boundaries.
//   - stream: the capture/compress/broadcast pipeline that turns processed
//     audio into packets for remote listeners, and the receive-side latency
//     compensation that re-times inbound packets before playback.
//
// The real-time contract: Engine.ProcessBlock is the per-quantum callback.
// It never blocks, allocates only when slicing outbound packets, and is the
// only caller of the processing units. Everything else (instance lifecycle,
// parameter staging, preset application, stream control) happens on the
// control plane and synchronizes with the callback through staged atomic
// snapshots.
//
// Basic usage:
//
//	engine, err := voicefx.New(voicefx.DefaultConfig(), transport)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	inst, _ := engine.Plugins().CreateInstance(dsp.EffectReverb, "main", nil)
//	streamID, _ := engine.StartStreaming(inst.ID(), listeners, stream.QualityLossy)
//
//	// once per processing quantum, from the audio callback:
//	engine.ProcessBlock("main", block)
//
// Network delivery is out of scope: frames are handed to the caller's
// stream.Transport implementation.
package voicefx
