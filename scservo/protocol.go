// Package scservo speaks the half-duplex serial protocol of SC series smart
// servos.
//
// Frames are
//
//	FF FF id len instr params... checksum
//
// with len = 2+len(params) and checksum the inverted low byte of the sum of
// every byte after the header. Replies carry the status byte in place of
// instr.
package scservo

import "time"

const (
	header = 0xFF

	InstrPing  = 0x01
	InstrRead  = 0x02
	InstrWrite = 0x03

	RegMotorMode = 9  // operating mode; 0 for continuous rotation
	RegSpeed     = 44 // goal speed in motor mode
	RegMoving    = 66 // moving status

	SpeedClockwise        = 240
	SpeedCounterClockwise = 40
	SpeedStop             = 0

	// NoResponse is the status reported when no valid reply arrives.
	NoResponse = 0xFF

	DefaultID      = 1
	DefaultTimeout = 10 * time.Millisecond
)

// Checksum returns the frame checksum of data.
func Checksum(data ...byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum
}

// Encode builds an instruction frame for servo id.
func Encode(id, instr byte, params ...byte) []byte {
	frame := make([]byte, 0, 6+len(params))
	frame = append(frame, header, header, id, byte(2+len(params)), instr)
	frame = append(frame, params...)
	return append(frame, Checksum(frame[2:]...))
}

// Decode looks for a complete reply from id in buf. It returns the payload,
// the status byte and the number of bytes consumed. A zero n means more
// input is needed. A reply that is not from id or fails the checksum is
// reported with status NoResponse.
func Decode(buf []byte, id byte) (payload []byte, status byte, n int) {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] != header || buf[i+1] != header {
			continue
		}
		// Allow a run of header bytes before the id.
		j := i + 2
		for j < len(buf) && buf[j] == header {
			j++
		}
		if j+2 >= len(buf) {
			return nil, 0, 0
		}
		if buf[j] != id {
			return nil, NoResponse, len(buf)
		}
		length := int(buf[j+1])
		end := j + 2 + length
		if length < 2 {
			return nil, NoResponse, j + 2
		}
		if end > len(buf) {
			return nil, 0, 0
		}
		status = buf[j+2]
		payload = buf[j+3 : end-1]
		if Checksum(buf[j:end-1]...) != buf[end-1] {
			return nil, NoResponse, end
		}
		return append([]byte(nil), payload...), status, end
	}
	return nil, 0, 0
}
