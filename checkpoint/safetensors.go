package checkpoint

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"

	"github.com/x448/float16"

	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/model"
)

// DType 是 safetensors 中的元素类型。
type DType string

const (
	F16 DType = "F16"
	F32 DType = "F32"
	F64 DType = "F64"
)

func (d DType) size() int {
	switch d {
	case F16:
		return 2
	case F32:
		return 4
	case F64:
		return 8
	}
	return 0
}

const metadataKey = "__metadata__"

// 头部长度上限，防止损坏文件触发超大分配
const maxHeaderSize = 100 << 20

type tensorInfo struct {
	DType       DType  `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Encode 按 safetensors 格式编码：8 字节小端头部长度 + JSON 头部 + 按名称排序的连续数据区。
func Encode(tensors map[string]model.Tensor, dtype DType, metadata map[string]string) ([]byte, error) {
	if dtype.size() == 0 {
		return nil, core.Errorf(core.ModuleCheckpoint, core.ErrorCodeNotSupported, "unsupported dtype %q", dtype)
	}
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if name == metadataKey {
			return nil, core.Errorf(core.ModuleCheckpoint, core.ErrorCodeInvalidInput, "reserved tensor name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	var body bytes.Buffer
	for _, name := range names {
		t := tensors[name]
		n := 1
		for _, d := range t.Shape {
			n *= d
		}
		if n != len(t.Data) {
			return nil, core.Errorf(core.ModuleCheckpoint, core.ErrorCodeShapeMismatch,
				"tensor %s: %d values for shape %v", name, len(t.Data), t.Shape)
		}
		begin := body.Len()
		writeValues(&body, dtype, t.Data)
		shape := t.Shape
		if shape == nil {
			shape = []int{}
		}
		header[name] = tensorInfo{DType: dtype, Shape: shape, DataOffsets: [2]int{begin, body.Len()}}
	}

	raw, err := json.Marshal(header)
	if err != nil {
		return nil, core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInternalError, "encode header")
	}
	// 头部按 8 字节对齐，用空格补齐
	if pad := len(raw) % 8; pad != 0 {
		raw = append(raw, bytes.Repeat([]byte(" "), 8-pad)...)
	}

	out := make([]byte, 8, 8+len(raw)+body.Len())
	binary.LittleEndian.PutUint64(out, uint64(len(raw)))
	out = append(out, raw...)
	out = append(out, body.Bytes()...)
	return out, nil
}

func writeValues(buf *bytes.Buffer, dtype DType, data []float64) {
	var scratch [8]byte
	for _, v := range data {
		switch dtype {
		case F16:
			binary.LittleEndian.PutUint16(scratch[:2], float16.Fromfloat32(float32(v)).Bits())
			buf.Write(scratch[:2])
		case F32:
			binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(float32(v)))
			buf.Write(scratch[:4])
		case F64:
			binary.LittleEndian.PutUint64(scratch[:8], math.Float64bits(v))
			buf.Write(scratch[:8])
		}
	}
}

// Decode 解析 safetensors 数据，返回所有张量（统一转换为 float64）与 __metadata__。
func Decode(data []byte) (map[string]model.Tensor, map[string]string, error) {
	if len(data) < 8 {
		return nil, nil, corrupt("file too short (%d bytes)", len(data))
	}
	n := binary.LittleEndian.Uint64(data[:8])
	if n > maxHeaderSize || n > uint64(len(data)-8) {
		return nil, nil, corrupt("header length %d exceeds file size %d", n, len(data))
	}
	headerEnd := 8 + int(n)

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:headerEnd], &header); err != nil {
		return nil, nil, core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInvalidInput, "decode header")
	}

	var metadata map[string]string
	if raw, ok := header[metadataKey]; ok {
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, nil, core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInvalidInput, "decode metadata")
		}
		delete(header, metadataKey)
	}

	body := data[headerEnd:]
	tensors := make(map[string]model.Tensor, len(header))
	for name, raw := range header {
		var info tensorInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, nil, core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInvalidInput, "decode tensor %s", name)
		}
		size := info.DType.size()
		if size == 0 {
			return nil, nil, core.Errorf(core.ModuleCheckpoint, core.ErrorCodeNotSupported,
				"tensor %s: unsupported dtype %q", name, info.DType)
		}
		count := 1
		for _, d := range info.Shape {
			if d < 0 {
				return nil, nil, corrupt("tensor %s: negative dimension in %v", name, info.Shape)
			}
			count *= d
		}
		begin, end := info.DataOffsets[0], info.DataOffsets[1]
		if begin < 0 || end < begin || end > len(body) {
			return nil, nil, corrupt("tensor %s: offsets [%d, %d) outside data of %d bytes", name, begin, end, len(body))
		}
		if end-begin != count*size {
			return nil, nil, corrupt("tensor %s: %d bytes for %d %s values", name, end-begin, count, info.DType)
		}
		tensors[name] = model.Tensor{Shape: info.Shape, Data: readValues(info.DType, body[begin:end], count)}
	}
	return tensors, metadata, nil
}

func readValues(dtype DType, b []byte, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		switch dtype {
		case F16:
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32())
		case F32:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		case F64:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	}
	return out
}

func corrupt(format string, args ...any) error {
	return core.Errorf(core.ModuleCheckpoint, core.ErrorCodeInvalidInput, "corrupt checkpoint: "+format, args...)
}
