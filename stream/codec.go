package stream

import (
	"fmt"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// lossyBitDepth is the sample depth of the reduced-PCM lossy format: one
// signed byte per sample, half the wire size of full PCM.
const (
	lossyBitDepth = 8
	lossyMax      = 1<<(lossyBitDepth-1) - 1
)

// encodePCM converts samples to 16-bit little-endian PCM bytes.
func encodePCM(samples []float32) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clampSample(s) * 32767.0)
		data[i*2] = byte(v)
		data[i*2+1] = byte(v >> 8)
	}
	return data
}

// decodePCM converts 16-bit little-endian PCM bytes back to samples.
func decodePCM(data []byte) []float32 {
	count := len(data) / 2
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(v) / 32767.0
	}
	return samples
}

// encodeReduced converts samples to the lossy reduced-PCM format: one
// signed 8-bit value per sample.
func encodeReduced(samples []float32) []byte {
	data := make([]byte, len(samples))
	for i, s := range samples {
		data[i] = byte(int8(clampSample(s) * lossyMax))
	}
	return data
}

// decodeReduced converts reduced-PCM bytes back to samples.
func decodeReduced(data []byte) []float32 {
	samples := make([]float32, len(data))
	for i, b := range data {
		samples[i] = float32(int8(b)) / lossyMax
	}
	return samples
}

func clampSample(s float32) float32 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

// opusDecoder decodes inbound Opus frames from remote peers to samples.
//
// Only the decode direction is supported; locally-originated lossy streams
// use the reduced-PCM format instead.
type opusDecoder struct {
	decoder opus.Decoder
	scratch []byte
}

// newOpusDecoder creates a decoder with a scratch buffer sized for the
// largest standard Opus frame (60 ms at 48 kHz).
func newOpusDecoder() *opusDecoder {
	return &opusDecoder{
		decoder: opus.NewDecoder(),
		scratch: make([]byte, 2880*2),
	}
}

// decode decodes one Opus frame, returning samples and the sample rate
// implied by the frame's coded bandwidth.
func (d *opusDecoder) decode(data []byte) ([]float32, uint32, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("empty opus frame")
	}

	bandwidth, isStereo, err := d.decoder.Decode(data, d.scratch)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "opusDecoder.decode",
			"error":    err.Error(),
		}).Error("Opus decode failed")
		return nil, 0, fmt.Errorf("opus decode failed: %w", err)
	}

	samples := decodePCM(d.scratch)
	if isStereo {
		// Downmix interleaved stereo to mono; the processing path is mono.
		mono := make([]float32, len(samples)/2)
		for i := range mono {
			mono[i] = (samples[i*2] + samples[i*2+1]) * 0.5
		}
		samples = mono
	}

	rate := sampleRateForBandwidth(bandwidth)

	logrus.WithFields(logrus.Fields{
		"function":     "opusDecoder.decode",
		"bandwidth":    bandwidth.String(),
		"is_stereo":    isStereo,
		"sample_count": len(samples),
		"sample_rate":  rate,
	}).Debug("Decoded inbound Opus frame")

	return samples, rate, nil
}

// sampleRateForBandwidth maps an Opus coded bandwidth to its sample rate.
func sampleRateForBandwidth(bandwidth opus.Bandwidth) uint32 {
	switch bandwidth {
	case opus.BandwidthNarrowband:
		return 8000
	case opus.BandwidthMediumband:
		return 12000
	case opus.BandwidthWideband:
		return 16000
	case opus.BandwidthSuperwideband:
		return 24000
	case opus.BandwidthFullband:
		return 48000
	default:
		logrus.WithFields(logrus.Fields{
			"function":  "sampleRateForBandwidth",
			"bandwidth": int(bandwidth),
		}).Warn("Unknown Opus bandwidth, defaulting to fullband")
		return 48000
	}
}
