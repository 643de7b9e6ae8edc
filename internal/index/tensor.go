package index

import "fmt"

// Tensor is the minimal 4-D float32 tensor shape the inference primitive
// consumes (spec §6: `run_audio_inference(batch: [B,1,T,M]) -> [B,D]`).
// There is no tensor/ndarray library anywhere in the example pack, so this
// is the flat-data-plus-shape representation stdlib math needs nothing
// more than (see DESIGN.md).
type Tensor struct {
	Shape [4]int // [B, 1, T, M]
	Data  []float32
}

// Inferencer is the external inference primitive C8 drives (spec §6). It
// receives only the audio batch; no dummy inputs for an unused text branch
// are built or passed by this package.
type Inferencer interface {
	RunAudioInference(batch Tensor) ([][]float32, error)
}

// stackTensor transposes a batch of [n_mels][time] mel spectrograms into
// the inference primitive's [B,1,T,M] layout (spec §4.8 step 4 "stack into
// a 4-D tensor ... with appropriate axis transposition from the
// preprocessor's [n_mels,time] output").
func stackTensor(mels [][][]float32) (Tensor, error) {
	if len(mels) == 0 {
		return Tensor{}, fmt.Errorf("index: cannot stack an empty batch")
	}
	nMels := len(mels[0])
	if nMels == 0 {
		return Tensor{}, fmt.Errorf("index: mel spectrogram has zero mel bins")
	}
	timeSteps := len(mels[0][0])

	b := len(mels)
	data := make([]float32, b*timeSteps*nMels)
	for i, mel := range mels {
		if len(mel) != nMels {
			return Tensor{}, fmt.Errorf("index: batch item %d has %d mel bins, want %d", i, len(mel), nMels)
		}
		for m, row := range mel {
			if len(row) != timeSteps {
				return Tensor{}, fmt.Errorf("index: batch item %d mel bin %d has %d time steps, want %d", i, m, len(row), timeSteps)
			}
			base := i*timeSteps*nMels + 0
			for t, v := range row {
				// transpose [n_mels][time] -> [time][mel] within each item
				data[base+t*nMels+m] = v
			}
		}
	}
	return Tensor{Shape: [4]int{b, 1, timeSteps, nMels}, Data: data}, nil
}
