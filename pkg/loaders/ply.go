// Package loaders reads mesh files into scene geometry. Loaded attribute
// buffers go through the scene's mesh caches, so loading the same file
// for several instances stores its buffers once.
package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-render-sampling/pkg/core"
	"github.com/df07/go-render-sampling/pkg/geometry"
)

// PLYData contains the raw data loaded from a PLY file
type PLYData struct {
	Vertices []core.Vec3 // vertex positions
	Normals  []core.Vec3 // per-vertex normals, empty if not present
	Faces    []int32     // triangle indices, 3 per triangle
}

type plyProperty struct {
	name     string
	dataType string
	isList   bool
}

type plyHeader struct {
	format        string // "ascii" or "binary_little_endian"
	vertexCount   int
	faceCount     int
	vertexProps   []plyProperty
	faceCountType string // list length type of the face index list
	faceIndexType string // element type of the face index list
}

// LoadPLY reads a PLY file and returns its vertex and face data. ASCII and
// binary little-endian formats are supported; quads are triangulated.
func LoadPLY(filename string) (*PLYData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening PLY file: %w", err)
	}
	defer file.Close()
	return ReadPLY(file)
}

// ReadPLY parses PLY data from a reader.
func ReadPLY(r io.Reader) (*PLYData, error) {
	br := bufio.NewReader(r)
	header, err := parseHeader(br)
	if err != nil {
		return nil, err
	}

	data := &PLYData{
		Vertices: make([]core.Vec3, header.vertexCount),
	}
	if header.hasNormals() {
		data.Normals = make([]core.Vec3, header.vertexCount)
	}

	switch header.format {
	case "ascii":
		err = readASCII(br, header, data)
	case "binary_little_endian":
		err = readBinary(br, header, data)
	default:
		err = fmt.Errorf("unsupported PLY format %q", header.format)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// LoadMesh loads a PLY file directly into a triangle mesh whose buffers
// are deduplicated by the given caches.
func LoadMesh(filename string, mc *geometry.MeshCaches, surface geometry.Surface) (*geometry.TriangleMesh, error) {
	data, err := LoadPLY(filename)
	if err != nil {
		return nil, err
	}
	return geometry.NewTriangleMesh(mc, data.Vertices, data.Normals, data.Faces, surface), nil
}

func parseHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := readLine(br)
	if err != nil || magic != "ply" {
		return nil, fmt.Errorf("not a PLY file")
	}

	h := &plyHeader{}
	element := ""
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("reading PLY header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment":
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("malformed format line %q", line)
			}
			h.format = fields[1]
		case "element":
			if len(fields) < 3 {
				return nil, fmt.Errorf("malformed element line %q", line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("element count in %q: %w", line, err)
			}
			element = fields[1]
			switch element {
			case "vertex":
				h.vertexCount = count
			case "face":
				h.faceCount = count
			}
		case "property":
			switch element {
			case "vertex":
				if fields[1] == "list" {
					h.vertexProps = append(h.vertexProps, plyProperty{name: fields[len(fields)-1], isList: true})
				} else {
					h.vertexProps = append(h.vertexProps, plyProperty{name: fields[2], dataType: fields[1]})
				}
			case "face":
				if fields[1] == "list" && len(fields) >= 5 {
					h.faceCountType = fields[2]
					h.faceIndexType = fields[3]
				}
			}
		case "end_header":
			return h, nil
		}
	}
}

func (h *plyHeader) hasNormals() bool {
	found := 0
	for _, p := range h.vertexProps {
		switch p.name {
		case "nx", "ny", "nz":
			found++
		}
	}
	return found == 3
}

func readASCII(br *bufio.Reader, h *plyHeader, data *PLYData) error {
	for i := 0; i < h.vertexCount; i++ {
		line, err := readLine(br)
		if err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
		fields := strings.Fields(line)
		if len(fields) < len(h.vertexProps) {
			return fmt.Errorf("vertex %d: %d values for %d properties", i, len(fields), len(h.vertexProps))
		}
		values := make(map[string]float64, len(fields))
		for p, prop := range h.vertexProps {
			v, err := strconv.ParseFloat(fields[p], 64)
			if err != nil {
				return fmt.Errorf("vertex %d property %s: %w", i, prop.name, err)
			}
			values[prop.name] = v
		}
		storeVertex(data, i, values)
	}

	for i := 0; i < h.faceCount; i++ {
		line, err := readLine(br)
		if err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
		fields := strings.Fields(line)
		n, err := strconv.Atoi(fields[0])
		if err != nil || len(fields) < n+1 {
			return fmt.Errorf("face %d: malformed index list %q", i, line)
		}
		indices := make([]int32, n)
		for k := 0; k < n; k++ {
			idx, err := strconv.Atoi(fields[k+1])
			if err != nil {
				return fmt.Errorf("face %d index %d: %w", i, k, err)
			}
			indices[k] = int32(idx)
		}
		if err := appendFace(data, indices); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
	}
	return nil
}

func readBinary(br *bufio.Reader, h *plyHeader, data *PLYData) error {
	for i := 0; i < h.vertexCount; i++ {
		values := make(map[string]float64, len(h.vertexProps))
		for _, prop := range h.vertexProps {
			v, err := readBinaryScalar(br, prop.dataType)
			if err != nil {
				return fmt.Errorf("vertex %d property %s: %w", i, prop.name, err)
			}
			values[prop.name] = v
		}
		storeVertex(data, i, values)
	}

	countType, indexType := h.faceCountType, h.faceIndexType
	if countType == "" {
		countType = "uchar"
	}
	if indexType == "" {
		indexType = "int"
	}
	for i := 0; i < h.faceCount; i++ {
		count, err := readBinaryScalar(br, countType)
		if err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
		indices := make([]int32, int(count))
		for k := range indices {
			idx, err := readBinaryScalar(br, indexType)
			if err != nil {
				return fmt.Errorf("face %d index %d: %w", i, k, err)
			}
			indices[k] = int32(idx)
		}
		if err := appendFace(data, indices); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
	}
	return nil
}

func readBinaryScalar(br *bufio.Reader, dataType string) (float64, error) {
	switch dataType {
	case "float", "float32":
		var v float32
		err := binary.Read(br, binary.LittleEndian, &v)
		return float64(v), err
	case "double", "float64":
		var v float64
		err := binary.Read(br, binary.LittleEndian, &v)
		return v, err
	case "uchar", "uint8":
		var v uint8
		err := binary.Read(br, binary.LittleEndian, &v)
		return float64(v), err
	case "int", "int32":
		var v int32
		err := binary.Read(br, binary.LittleEndian, &v)
		return float64(v), err
	case "uint", "uint32":
		var v uint32
		err := binary.Read(br, binary.LittleEndian, &v)
		return float64(v), err
	case "short", "int16":
		var v int16
		err := binary.Read(br, binary.LittleEndian, &v)
		return float64(v), err
	case "ushort", "uint16":
		var v uint16
		err := binary.Read(br, binary.LittleEndian, &v)
		return float64(v), err
	default:
		return math.NaN(), fmt.Errorf("unsupported property type %q", dataType)
	}
}

func storeVertex(data *PLYData, i int, values map[string]float64) {
	data.Vertices[i] = core.NewVec3(values["x"], values["y"], values["z"])
	if data.Normals != nil {
		data.Normals[i] = core.NewVec3(values["nx"], values["ny"], values["nz"])
	}
}

// appendFace triangulates an n-gon face as a fan
func appendFace(data *PLYData, indices []int32) error {
	if len(indices) < 3 {
		return fmt.Errorf("face with %d vertices", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(data.Vertices) || idx < 0 {
			return fmt.Errorf("vertex index %d out of range", idx)
		}
	}
	for k := 1; k+1 < len(indices); k++ {
		data.Faces = append(data.Faces, indices[0], indices[k], indices[k+1])
	}
	return nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
