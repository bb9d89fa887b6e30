// Package netplan allocates subnet ranges inside a VPC block and checks
// address containment.
package netplan

import (
	"errors"
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
)

// ErrNotContained is returned when a range lies outside its enclosing block.
var ErrNotContained = errors.New("range not contained in block")

// Plan is the subnet layout for a VPC. Public subnets take the first indexes
// of the block and private subnets follow, one of each per zone.
type Plan struct {
	VPC     string
	Public  []string
	Private []string
}

// Subnets returns every planned range, public first.
func (p *Plan) Subnets() []string {
	out := make([]string, 0, len(p.Public)+len(p.Private))
	out = append(out, p.Public...)
	return append(out, p.Private...)
}

// Allocate carves zones public and zones private subnets of the given prefix
// length out of block, sequentially from its start.
func Allocate(block string, zones, prefix int) (*Plan, error) {
	_, base, err := net.ParseCIDR(block)
	if err != nil {
		return nil, fmt.Errorf("parsing VPC block: %w", err)
	}
	if zones < 1 {
		return nil, fmt.Errorf("zones must be at least 1, got %d", zones)
	}

	baseBits, _ := base.Mask.Size()
	newBits := prefix - baseBits
	if newBits <= 0 {
		return nil, fmt.Errorf("subnet prefix /%d does not fit in %s", prefix, base)
	}
	if capacity := 1 << newBits; 2*zones > capacity {
		return nil, fmt.Errorf("%s holds %d /%d subnets, need %d", base, capacity, prefix, 2*zones)
	}

	plan := &Plan{VPC: base.String()}
	for i := 0; i < 2*zones; i++ {
		sn, err := cidr.Subnet(base, newBits, i)
		if err != nil {
			return nil, fmt.Errorf("allocating subnet %d: %w", i, err)
		}
		if i < zones {
			plan.Public = append(plan.Public, sn.String())
		} else {
			plan.Private = append(plan.Private, sn.String())
		}
	}

	if err := Verify(plan.VPC, plan.Subnets()); err != nil {
		return nil, err
	}
	return plan, nil
}

// Verify checks that every subnet lies inside block and that no two overlap.
func Verify(block string, subnets []string) error {
	_, base, err := net.ParseCIDR(block)
	if err != nil {
		return fmt.Errorf("parsing block: %w", err)
	}

	nets := make([]*net.IPNet, 0, len(subnets))
	for _, s := range subnets {
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return fmt.Errorf("parsing subnet: %w", err)
		}
		nets = append(nets, n)
	}

	return cidr.VerifyNoOverlap(nets, base)
}

// Contains reports whether inner lies entirely inside outer.
func Contains(outer, inner string) (bool, error) {
	_, o, err := net.ParseCIDR(outer)
	if err != nil {
		return false, err
	}
	_, i, err := net.ParseCIDR(inner)
	if err != nil {
		return false, err
	}

	oBits, _ := o.Mask.Size()
	iBits, _ := i.Mask.Size()
	if iBits < oBits {
		return false, nil
	}
	first, last := cidr.AddressRange(i)
	return o.Contains(first) && o.Contains(last), nil
}

// MustContain is Contains returning ErrNotContained instead of false.
func MustContain(outer, inner string) error {
	ok, err := Contains(outer, inner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s in %s: %w", inner, outer, ErrNotContained)
	}
	return nil
}

// Canonical returns block with its host bits cleared, the form EC2 stores
// and reports. 10.0.128.1/17 becomes 10.0.128.0/17.
func Canonical(block string) (string, error) {
	_, n, err := net.ParseCIDR(block)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// Overlaps reports whether the two ranges share any address.
func Overlaps(a, b string) (bool, error) {
	_, an, err := net.ParseCIDR(a)
	if err != nil {
		return false, err
	}
	_, bn, err := net.ParseCIDR(b)
	if err != nil {
		return false, err
	}
	return an.Contains(bn.IP) || bn.Contains(an.IP), nil
}
