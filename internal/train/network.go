package train

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/maxwellchess/selfplay/internal/ml"
	"github.com/pkg/errors"
)

// Binary layout of the checkpoint file:
// - All the data is stored in little-endian layout
// - All the matrices are written row-major as float32
// - The magic number/version consists of 4 bytes:
//   - 66 (which is the ASCII code for B), uint8
//   - 90 (which is the ASCII code for Z), uint8
//   - 3 The major part of the current version number, uint8
//   - 0 The minor part of the current version number, uint8
//
// - 4 uint32: inputs, hidden neurons, outputs, buckets
// - Hidden layer weights, followed by its biases
// - For every bucket: output layer weights, followed by its biases
//
// Only raw parameter values are stored.
var checkpointMagic = [4]byte{66, 90, 3, 0}

func (m *Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w = bufio.NewWriter(f)
	err = m.write(w)
	if err != nil {
		return errors.Wrapf(err, "write checkpoint %v", path)
	}
	err = w.Flush()
	if err != nil {
		return err
	}
	return f.Close()
}

func (m *Model) write(w io.Writer) error {
	_, err := w.Write(checkpointMagic[:])
	if err != nil {
		return err
	}

	var buf = make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], uint32(m.topology.Inputs))
	binary.LittleEndian.PutUint32(buf[4:], uint32(m.topology.Hidden))
	binary.LittleEndian.PutUint32(buf[8:], uint32(m.topology.Outputs))
	binary.LittleEndian.PutUint32(buf[12:], uint32(m.topology.Buckets))
	_, err = w.Write(buf)
	if err != nil {
		return err
	}

	for _, layer := range []*Layer{m.hidden, m.output} {
		for bucket := range layer.weights {
			err = writeSlice(w, layer.weights[bucket].Flatten())
			if err != nil {
				return err
			}
			err = writeSlice(w, layer.biases[bucket].Flatten())
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadModel reads a checkpoint written by Save.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	model, err := readModel(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "read checkpoint %v", path)
	}
	return model, nil
}

// LoadCheckpoint reads a checkpoint and rejects it unless its topology equals topology.
func LoadCheckpoint(path string, topology Topology) (*Model, error) {
	model, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	if model.Topology() != topology {
		return nil, errors.Errorf("checkpoint topology %+v does not match config %+v",
			model.Topology(), topology)
	}
	return model, nil
}

func readModel(r io.Reader) (*Model, error) {
	var buf = make([]byte, 4)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, err
	}
	if buf[0] != checkpointMagic[0] || buf[1] != checkpointMagic[1] {
		return nil, errors.New("magic word does not match expected")
	}
	if buf[2] != checkpointMagic[2] || buf[3] != checkpointMagic[3] {
		return nil, errors.Errorf("checkpoint version %v.%v is not supported", buf[2], buf[3])
	}

	buf = make([]byte, 16)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return nil, err
	}
	var topology = Topology{
		Inputs:  int(binary.LittleEndian.Uint32(buf[0:])),
		Hidden:  int(binary.LittleEndian.Uint32(buf[4:])),
		Outputs: int(binary.LittleEndian.Uint32(buf[8:])),
		Buckets: int(binary.LittleEndian.Uint32(buf[12:])),
	}
	if topology.Inputs != FeatureSize || topology.Hidden <= 0 ||
		topology.Outputs <= 0 || topology.Buckets <= 0 {
		return nil, errors.Errorf("bad topology %+v", topology)
	}

	var m = &Model{
		topology: topology,
		hidden:   &Layer{activationFn: &ml.ClippedReLuActivation{}, outputs: ml.New(1, topology.Hidden)},
		output:   &Layer{activationFn: &ml.SigmoidActivation{}, outputs: ml.New(1, topology.Outputs)},
		inputs:   ml.New(1, topology.Inputs),
		cost:     &ml.AbsCost{},
	}
	err = readLayer(r, m.hidden, topology.Inputs, topology.Hidden, 1)
	if err != nil {
		return nil, err
	}
	err = readLayer(r, m.output, topology.Hidden, topology.Outputs, topology.Buckets)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func readLayer(r io.Reader, layer *Layer, inputSize, outputSize, buckets int) error {
	for i := 0; i < buckets; i++ {
		weights, err := readSlice(r, inputSize*outputSize)
		if err != nil {
			return err
		}
		biases, err := readSlice(r, outputSize)
		if err != nil {
			return err
		}
		layer.weights = append(layer.weights, ml.FromSlice(inputSize, outputSize, weights))
		layer.biases = append(layer.biases, ml.FromSlice(1, outputSize, biases))
	}
	return nil
}

func readSlice(r io.Reader, size int) ([]float64, error) {
	var buf = make([]byte, 4*size)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, err
	}
	var data = make([]float64, size)
	for j := range data {
		data[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:])))
	}
	return data, nil
}

func writeSlice(w io.Writer, data []float64) error {
	var buf = make([]byte, 4*len(data))
	for j := range data {
		binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(float32(data[j])))
	}
	_, err := w.Write(buf)
	return err
}
