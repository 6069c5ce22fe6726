// Package result serializes a completed (or failed) operation into the
// JSON shape returned to the client — component J of the pipeline.
//
// Field selection and formatting are grounded bit-for-bit on
// serializeCreateCKCNode: every conditional field, the hex/decimal/base64
// encodings, and the VM device-class string mapping are carried over
// exactly as that function produces them.
package result

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/barnettlynn/fpsckc/internal/fpserrors"
	"github.com/barnettlynn/fpsckc/internal/fpslog"
	"github.com/barnettlynn/fpsckc/internal/spctag"
)

// CheckIn carries the check-in echo fields, populated only when the
// operation was a check-in.
type CheckIn struct {
	ServerChallenge  uint64
	Flags            uint64
	DurationLeft     uint32
	TitleID          []byte
	DeletedStreamIDs [][]byte
}

// Operation is everything one completed (or failed) create-ckc operation
// needs to render its result node.
type Operation struct {
	ID     uint64
	Status fpserrors.Code

	HU  []byte
	CKC []byte

	IsCheckIn bool
	CheckIn   *CheckIn

	DeviceIdentity *spctag.DeviceIdentity
	VMDeviceInfo   *spctag.VMDeviceInfo
}

// Serialize renders one operation into its JSON-ready map. On success
// (Status == OK) every populated optional field is included per the
// rules below; on failure only id and status are present.
func Serialize(op Operation) map[string]any {
	m := map[string]any{
		"id":     op.ID,
		"status": int32(op.Status),
	}
	if op.Status != fpserrors.CodeOK {
		return m
	}

	if len(op.HU) > 0 {
		m["hu"] = hexUpper(op.HU)
	}

	if op.IsCheckIn && op.CheckIn != nil {
		ci := op.CheckIn
		m["check-in-server-challenge"] = strconv.FormatUint(ci.ServerChallenge, 10)
		if ci.Flags != 0 {
			m["check-in-flags"] = strconv.FormatUint(ci.Flags, 16)
		}
		m["duration-left"] = strconv.FormatUint(uint64(ci.DurationLeft), 10)
		if ci.Flags&spctag.SyncFlagTitleIDValid != 0 {
			// Populated whenever the flag is set, even for a
			// zero-length title id.
			m["check-in-title-id"] = hexUpper(ci.TitleID)
		}
		if len(ci.DeletedStreamIDs) > 0 {
			ids := make([]string, len(ci.DeletedStreamIDs))
			for i, id := range ci.DeletedStreamIDs {
				ids[i] = hexUpper(id)
			}
			m["check-in-stream-id"] = ids
		}
	} else if len(op.CKC) > 0 {
		m["ckc"] = base64.StdEncoding.EncodeToString(op.CKC)
	}

	if di := op.DeviceIdentity; di != nil {
		m["fpdi-version"] = di.FPDIVersion
		m["device-class"] = uint32(di.DeviceClass)
		m["vendor-hash"] = hexUpper(di.VendorHash)
		m["product-hash"] = hexUpper(di.ProductHash)
		m["fps-ree-version"] = hex8(di.FPVersionREE)
		m["fps-tee-version"] = hex8(di.FPVersionTEE)
		m["os-version"] = hex8(di.OSVersion)
	}

	if vm := op.VMDeviceInfo; vm != nil {
		m["host-device-class"] = deviceClassString(vm.Host.DeviceClass)
		m["host-os-version"] = hex8(vm.Host.OSVersion)
		m["host-vm-protocol-version"] = vm.Host.VMProtocolVersion
		m["guest-device-class"] = deviceClassString(vm.Guest.DeviceClass)
		m["guest-os-version"] = hex8(vm.Guest.OSVersion)
		m["guest-vm-protocol-version"] = vm.Guest.VMProtocolVersion
	}

	return m
}

// SerializeAll renders a batch of operations best-effort: a single
// operation's serialization failure is logged and that operation is
// dropped from the envelope, but every other result is still produced
// (serializeResults's "continue on per-operation failure" behavior).
func SerializeAll(ops []Operation) []map[string]any {
	out := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		m, err := serializeSafely(op)
		if err != nil {
			fpslog.Logger().Error().Err(err).Uint64("id", op.ID).Msg("dropping result: serialization failed")
			continue
		}
		out = append(out, m)
	}
	return out
}

func serializeSafely(op Operation) (m map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("result: panic serializing operation %d: %v", op.ID, r)
		}
	}()
	return Serialize(op), nil
}

func hexUpper(b []byte) string {
	return fmt.Sprintf("%X", b)
}

func hex8(v uint32) string {
	return fmt.Sprintf("%08X", v)
}

// deviceClassString maps a device class to the exact strings
// serializeCreateCKCNode emits; any class outside the named Apple
// classes renders as "Unknown".
func deviceClassString(dc spctag.DeviceClass) string {
	switch dc {
	case spctag.DeviceClassAppleDesktop:
		return "appleDesktop"
	case spctag.DeviceClassAppleMobile:
		return "appleMobile"
	case spctag.DeviceClassAppleWearable:
		return "appleWearable"
	case spctag.DeviceClassAppleLivingRoom:
		return "appleLivingRoom"
	case spctag.DeviceClassAppleSpatial:
		return "appleSpacial"
	default:
		return "Unknown"
	}
}
