package randflake

import "time"

// Parse splits an identifier into its fields.
//
//	sequence  = id & 0xFFF
//	machineID = (id >> 12) & 0x3FF
//	timestamp = (id >> 22) + epoch
//
// timestamp is in milliseconds since the Unix epoch. Parse never fails and
// cannot tell whether id was produced by a generator with the same epoch;
// foreign IDs decode to valid but meaningless values.
func Parse(id uint64, epoch int64) (timestamp, machineID, sequence int64) {
	delta, machineID, sequence := unpack(id)
	return delta + epoch, machineID, sequence
}

// Parts is the decoded form of an identifier.
type Parts struct {
	Timestamp int64 `json:"timestamp"`
	MachineID int64 `json:"machine_id"`
	Sequence  int64 `json:"sequence"`
}

// Time returns Timestamp as a UTC time.Time.
func (p Parts) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// Compose packs the parts back into an identifier using epoch.
// Machine id and sequence are masked to their widths.
func (p Parts) Compose(epoch int64) ID {
	return ID(pack(p.Timestamp-epoch, p.MachineID, p.Sequence))
}
