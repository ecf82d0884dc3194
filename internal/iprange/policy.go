package iprange

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go4.org/netipx"
)

var (
	ErrInvalidPolicy     = errors.New("invalid validation policy")
	ErrUnsupportedFormat = errors.New("unsupported policy file format")
)

// Block is a named IPv4 block, written either as CIDR ("127.0.0.0/8") or as
// an inclusive range ("224.0.0.0-255.255.255.255").
type Block struct {
	Name  string `koanf:"name" json:"name"`
	Block string `koanf:"block" json:"block"`
}

// Policy holds the thresholds and address blocks used to classify ranges
type Policy struct {
	LargeRangeThreshold          int64    `koanf:"large_range_threshold" json:"large_range_threshold"`
	ExtremelyLargeRangeThreshold int64    `koanf:"extremely_large_range_threshold" json:"extremely_large_range_threshold"`
	PrivateBlocks                []string `koanf:"private_blocks" json:"private_blocks"`
	ReservedBlocks               []Block  `koanf:"reserved_blocks" json:"reserved_blocks"`
}

// DefaultPolicy returns the stock thresholds (/16 and /8), the RFC 1918
// private blocks and the reserved blocks checked for contains_reserved.
func DefaultPolicy() Policy {
	return Policy{
		LargeRangeThreshold:          1 << 16,
		ExtremelyLargeRangeThreshold: 1 << 24,
		PrivateBlocks: []string{
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
		},
		ReservedBlocks: []Block{
			{Name: "this network", Block: "0.0.0.0/8"},
			{Name: "loopback", Block: "127.0.0.0/8"},
			{Name: "link-local", Block: "169.254.0.0/16"},
			{Name: "multicast and reserved", Block: "224.0.0.0/3"},
		},
	}
}

// LoadPolicy reads a YAML or JSON policy file. Keys missing from the file
// keep their default values.
func LoadPolicy(path string) (Policy, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return Policy{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	return parsePolicy(data, parser)
}

func parsePolicy(data []byte, parser koanf.Parser) (Policy, error) {
	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Policy{}, fmt.Errorf("parsing policy: %w", err)
		}
	}

	// Decode into an empty policy and merge, so a shorter block list in the
	// file replaces the default list instead of overwriting it element-wise.
	var loaded Policy
	if err := k.UnmarshalWithConf("", &loaded, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Policy{}, fmt.Errorf("decoding policy: %w", err)
	}

	policy := DefaultPolicy()
	if loaded.LargeRangeThreshold != 0 {
		policy.LargeRangeThreshold = loaded.LargeRangeThreshold
	}
	if loaded.ExtremelyLargeRangeThreshold != 0 {
		policy.ExtremelyLargeRangeThreshold = loaded.ExtremelyLargeRangeThreshold
	}
	if loaded.PrivateBlocks != nil {
		policy.PrivateBlocks = loaded.PrivateBlocks
	}
	if loaded.ReservedBlocks != nil {
		policy.ReservedBlocks = loaded.ReservedBlocks
	}

	if _, err := New(policy); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// block is a Block resolved to numeric bounds
type block struct {
	name string
	r    netipx.IPRange
	from uint32
	to   uint32
}

func compileBlock(name, s string) (block, error) {
	r, err := parseBlock(s)
	if err != nil {
		return block{}, err
	}
	return block{
		name: name,
		r:    r,
		from: addrToUint32(r.From()),
		to:   addrToUint32(r.To()),
	}, nil
}

func parseBlock(s string) (netipx.IPRange, error) {
	s = strings.TrimSpace(s)

	if start, end, ok := strings.Cut(s, "-"); ok {
		from, ok1 := parseIPv4(start)
		to, ok2 := parseIPv4(end)
		if !ok1 || !ok2 {
			return netipx.IPRange{}, fmt.Errorf("%w: block %q is not an IPv4 range", ErrInvalidPolicy, s)
		}
		r := netipx.IPRangeFrom(from, to)
		if !r.IsValid() {
			return netipx.IPRange{}, fmt.Errorf("%w: block %q is inverted", ErrInvalidPolicy, s)
		}
		return r, nil
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netipx.IPRange{}, fmt.Errorf("%w: block %q: %w", ErrInvalidPolicy, s, err)
	}
	if !prefix.Addr().Is4() {
		return netipx.IPRange{}, fmt.Errorf("%w: block %q is not IPv4", ErrInvalidPolicy, s)
	}
	return netipx.RangeOfPrefix(prefix.Masked()), nil
}

// NewFromFile builds a Validator from a policy file, or from DefaultPolicy
// when path is empty.
func NewFromFile(path string) (*Validator, error) {
	if path == "" {
		return New(DefaultPolicy())
	}
	policy, err := LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	return New(policy)
}
