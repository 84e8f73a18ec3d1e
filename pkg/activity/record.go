package activity

import "strings"

// Kind identifies which log source a record came from.
type Kind int

const (
	KindLogon Kind = iota
	KindDevice
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindLogon:
		return "logon"
	case KindDevice:
		return "device"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// FeatureChannels is the width of an edge feature vector.
const FeatureChannels = 5

// Feature channel positions. The layout is fixed across all record kinds.
const (
	ChannelLogon = iota
	ChannelLogoff
	ChannelConnect
	ChannelDisconnect
	ChannelRequest
)

// Features is a per-record edge feature vector.
type Features [FeatureChannels]float64

// Record is implemented by LogonRecord, DeviceRecord and HTTPRecord.
type Record interface {
	Kind() Kind
	// Actor is the normalized user the activity belongs to.
	Actor() string
	// Target is the device or domain key on the other end of the activity.
	Target() string
	Date() Day
	Features() Features
}

// LogonRecord is one user's daily logon/logoff totals on a PC.
type LogonRecord struct {
	User    string
	PC      string
	Day     Day
	Logons  int
	Logoffs int
}

func (r LogonRecord) Kind() Kind     { return KindLogon }
func (r LogonRecord) Actor() string  { return r.User }
func (r LogonRecord) Target() string { return r.PC }
func (r LogonRecord) Date() Day      { return r.Day }

func (r LogonRecord) Features() Features {
	var f Features
	f[ChannelLogon] = float64(r.Logons)
	f[ChannelLogoff] = float64(r.Logoffs)
	return f
}

// DeviceRecord is one user's daily removable-media connect/disconnect totals on a PC.
type DeviceRecord struct {
	User        string
	PC          string
	Day         Day
	Connects    int
	Disconnects int
}

func (r DeviceRecord) Kind() Kind     { return KindDevice }
func (r DeviceRecord) Actor() string  { return r.User }
func (r DeviceRecord) Target() string { return r.PC }
func (r DeviceRecord) Date() Day      { return r.Day }

func (r DeviceRecord) Features() Features {
	var f Features
	f[ChannelConnect] = float64(r.Connects)
	f[ChannelDisconnect] = float64(r.Disconnects)
	return f
}

// HTTPRecord is one user's daily request total against a domain.
type HTTPRecord struct {
	User     string
	Domain   string
	Day      Day
	Requests int
}

func (r HTTPRecord) Kind() Kind     { return KindHTTP }
func (r HTTPRecord) Actor() string  { return r.User }
func (r HTTPRecord) Target() string { return r.Domain }
func (r HTTPRecord) Date() Day      { return r.Day }

func (r HTTPRecord) Features() Features {
	var f Features
	f[ChannelRequest] = float64(r.Requests)
	return f
}

// NormalizeUser returns the canonical identity of a user string.
func NormalizeUser(u string) string {
	return strings.TrimSpace(u)
}
