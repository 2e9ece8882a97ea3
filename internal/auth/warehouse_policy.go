package auth

import "strings"

// WarehousePolicy maps a warehouse zone to the substitute zones a user
// scoped to it may also post in. Warehouse names follow the
// "<Site> - <Zone>" convention; the zone is the segment after the last
// hyphen. Kept as a table rather than name rewriting so that adding a zone
// is data, not code.
type WarehousePolicy map[string][]string

// DefaultWarehousePolicy reflects depot operations: staff working a Normal
// or Depot zone may also receive into the matching Breakage zone.
func DefaultWarehousePolicy() WarehousePolicy {
	return WarehousePolicy{
		"Normal": {"Breakage"},
		"Depot":  {"Breakage"},
	}
}

// Allows reports whether a user scoped to the granted warehouses may post in
// the requested one, either directly or through a substitute zone of a
// granted warehouse at the same site.
func (p WarehousePolicy) Allows(granted []string, requested string) bool {
	for _, g := range granted {
		if g == requested {
			return true
		}
	}
	reqSite, reqZone := splitWarehouse(requested)
	for _, g := range granted {
		site, zone := splitWarehouse(g)
		if site != reqSite {
			continue
		}
		for _, substitute := range p[zone] {
			if substitute == reqZone {
				return true
			}
		}
	}
	return false
}

func splitWarehouse(name string) (site, zone string) {
	idx := strings.LastIndex(name, " - ")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+3:]
}
