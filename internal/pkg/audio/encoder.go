package audio

import (
	"bytes"
	"encoding/binary"
	"io"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
	"github.com/pkg/errors"
)

// batch size of raw PCM bytes collected before an encode pass
const encodeThreshold = 32768

// mp3Writer batch-encodes S16LE mono PCM to mp3 frames
type mp3Writer struct {
	encoder *mp3encoder.Encoder
	output  io.Writer
	buffer  []byte
	samples int64
}

func newMP3Writer(output io.Writer) *mp3Writer {
	// the encoder is opened as stereo, shine drops half the input
	// when initialized with one channel
	return &mp3Writer{
		encoder: mp3encoder.NewEncoder(SampleRate, 2),
		output:  output,
		buffer:  make([]byte, 0, encodeThreshold),
	}
}

func (w *mp3Writer) Write(pcm []byte) error {
	w.buffer = append(w.buffer, pcm...)
	if len(w.buffer) >= encodeThreshold {
		return w.encodeBatch()
	}
	return nil
}

// Flush encodes the remaining buffered data
func (w *mp3Writer) Flush() error {
	return w.encodeBatch()
}

// Samples returns the count of mono samples encoded so far
func (w *mp3Writer) Samples() int64 {
	return w.samples
}

func (w *mp3Writer) encodeBatch() error {
	n := len(w.buffer) / 2
	if n == 0 {
		return nil
	}
	mono := make([]int16, n)
	if err := binary.Read(bytes.NewReader(w.buffer[:n*2]), binary.LittleEndian, mono); err != nil {
		return errors.Wrap(err, "Can't read pcm samples")
	}
	// duplicate each sample so both channels carry the mono signal
	stereo := make([]int16, n*2)
	for i, s := range mono {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	if err := w.encoder.Write(w.output, stereo); err != nil {
		return errors.Wrap(err, "Can't encode mp3")
	}
	w.samples += int64(n)
	w.buffer = w.buffer[:0]
	return nil
}
