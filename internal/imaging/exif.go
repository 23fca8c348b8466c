package imaging

import "encoding/binary"

// jpegOrientation scans a JPEG byte stream for the EXIF orientation tag.
// Returns 0 when absent or malformed; values 1..8 per the EXIF spec.
// Rendered PDF pages carry no EXIF, so this only matters for photographs.
func jpegOrientation(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return 0
		}
		marker := data[i+1]
		// standalone markers have no length field
		if marker == 0xD8 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if i+4 > len(data) {
			return 0
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if segLen < 2 || i+2+segLen > len(data) {
			return 0
		}
		if marker == 0xE1 { // APP1
			return exifOrientation(data[i+4 : i+2+segLen])
		}
		if marker == 0xDA { // start of scan, no EXIF past this point
			return 0
		}
		i += 2 + segLen
	}
	return 0
}

func exifOrientation(seg []byte) int {
	if len(seg) < 14 || string(seg[:6]) != "Exif\x00\x00" {
		return 0
	}
	tiff := seg[6:]
	var order binary.ByteOrder
	switch {
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	default:
		return 0
	}
	if len(tiff) < 8 {
		return 0
	}
	ifdOff := int(order.Uint32(tiff[4:8]))
	if ifdOff+2 > len(tiff) {
		return 0
	}
	count := int(order.Uint16(tiff[ifdOff : ifdOff+2]))
	for n := 0; n < count; n++ {
		entry := ifdOff + 2 + n*12
		if entry+12 > len(tiff) {
			return 0
		}
		tag := order.Uint16(tiff[entry : entry+2])
		if tag != 0x0112 {
			continue
		}
		v := int(order.Uint16(tiff[entry+8 : entry+10]))
		if v >= 1 && v <= 8 {
			return v
		}
		return 0
	}
	return 0
}
