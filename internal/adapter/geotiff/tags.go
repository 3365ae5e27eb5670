package geotiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/fieldsight/spectral-etl/internal/raster"
)

// GeoTIFF 1.1 tag and key identifiers.
const (
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	keyGeographicType  = 2048
	keyProjectedCSType = 3072
	tiffTypeShort      = 3
	tiffTypeLong       = 4
	tiffTypeDouble     = 12
)

var errMissingGeoTags = errors.New("missing georeferencing tags")

// parseGeoTags reads the first IFD of a TIFF byte stream and extracts the
// affine pixel transform and EPSG code from the GeoTIFF tags.
func parseGeoTags(data []byte) (raster.Affine, int, error) {
	if len(data) < 8 {
		return raster.Affine{}, 0, errors.New("truncated tiff header")
	}

	var bo binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return raster.Affine{}, 0, fmt.Errorf("bad tiff byte order %q", data[:2])
	}
	if bo.Uint16(data[2:4]) != 42 {
		return raster.Affine{}, 0, errors.New("bad tiff magic")
	}

	ifdOff := int(bo.Uint32(data[4:8]))
	if ifdOff+2 > len(data) {
		return raster.Affine{}, 0, errors.New("truncated tiff IFD")
	}
	entryCount := int(bo.Uint16(data[ifdOff : ifdOff+2]))

	var (
		scales    []float64
		tiepoints []float64
		geoKeys   []uint16
	)
	for i := 0; i < entryCount; i++ {
		entry := ifdOff + 2 + 12*i
		if entry+12 > len(data) {
			return raster.Affine{}, 0, errors.New("truncated tiff IFD entry")
		}
		tag := bo.Uint16(data[entry : entry+2])
		typ := bo.Uint16(data[entry+2 : entry+4])
		count := int(bo.Uint32(data[entry+4 : entry+8]))

		payload, err := entryPayload(data, bo, entry, typ, count)
		if err != nil {
			return raster.Affine{}, 0, fmt.Errorf("tag %d: %w", tag, err)
		}

		switch tag {
		case tagModelPixelScale:
			scales = readDoubles(payload, bo, count)
		case tagModelTiepoint:
			tiepoints = readDoubles(payload, bo, count)
		case tagGeoKeyDirectory:
			geoKeys = readShorts(payload, bo, count)
		}
	}

	if len(scales) < 2 || len(tiepoints) < 6 {
		return raster.Affine{}, 0, errMissingGeoTags
	}

	epsg, err := epsgFromGeoKeys(geoKeys)
	if err != nil {
		return raster.Affine{}, 0, err
	}

	// The tiepoint anchors raster position (i, j) at model position (x, y);
	// shift back to the raster origin.
	sx, sy := scales[0], scales[1]
	i, j := tiepoints[0], tiepoints[1]
	x, y := tiepoints[3], tiepoints[4]
	transform := raster.Affine{
		A: sx, B: 0, C: x - i*sx,
		D: 0, E: -sy, F: y + j*sy,
	}
	return transform, epsg, nil
}

func entryPayload(data []byte, bo binary.ByteOrder, entry int, typ uint16, count int) ([]byte, error) {
	size := typeSize(typ) * count
	if size <= 0 {
		return nil, fmt.Errorf("unsupported tiff type %d", typ)
	}
	if size <= 4 {
		return data[entry+8 : entry+8+size], nil
	}
	off := int(bo.Uint32(data[entry+8 : entry+12]))
	if off+size > len(data) {
		return nil, errors.New("payload outside file")
	}
	return data[off : off+size], nil
}

func typeSize(typ uint16) int {
	switch typ {
	case tiffTypeShort:
		return 2
	case tiffTypeLong:
		return 4
	case tiffTypeDouble:
		return 8
	default:
		return 0
	}
}

func readDoubles(payload []byte, bo binary.ByteOrder, count int) []float64 {
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = math.Float64frombits(bo.Uint64(payload[i*8 : i*8+8]))
	}
	return out
}

func readShorts(payload []byte, bo binary.ByteOrder, count int) []uint16 {
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = bo.Uint16(payload[i*2 : i*2+2])
	}
	return out
}

// epsgFromGeoKeys walks the geo key directory. Keys are quads of
// (id, location, count, value); a zero location stores the value inline.
// The projected CS key wins over the geographic one when both appear.
func epsgFromGeoKeys(keys []uint16) (int, error) {
	if len(keys) < 4 {
		return 0, errMissingGeoTags
	}
	numKeys := int(keys[3])
	geographic, projected := 0, 0
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+4 > len(keys) {
			break
		}
		id, location, value := keys[base], keys[base+1], keys[base+3]
		if location != 0 {
			continue
		}
		switch id {
		case keyProjectedCSType:
			projected = int(value)
		case keyGeographicType:
			geographic = int(value)
		}
	}
	if projected != 0 {
		return projected, nil
	}
	if geographic != 0 {
		return geographic, nil
	}
	return 0, errors.New("no CRS geo key")
}
