package classify

import (
	"regexp"
	"strings"
)

// The pattern sets below are accumulated field knowledge: every entry exists
// because some real switch firmware produced a false positive without it.
// They are deliberately kept as explicit, ordered, named tables so each rule
// can be tested on its own and the precedence between them is auditable.

// ─────────────────────────────────────────────────────────────────────────────
// Virtual-interface rejection
// ─────────────────────────────────────────────────────────────────────────────

// virtualSubstrings reject an interface when the lowercase description merely
// contains the text. Checked before the regex sets.
var virtualSubstrings = []string{
	"cpu interface",
	"link aggregate",
	"logical-int",
}

// virtualWordStart are patterns that must match at a word boundary but may be
// the start of a longer token ("vlan10", "tun0").
var virtualWordStart = compileAll(
	`\bvlan`,
	`\btun`,
	`\bgre`,
	`\bimq`,
	`\bifb`,
	`\berspan`,
	`\bip_vti`,
	`\bip6_vti`,
	`\bip6tnl`,
	`\bip6gre`,
	`\bwds`,
	`\bloopback`,
	`\bpo\d+`,
)

// virtualExactWord require the keyword to stand alone ("lo" rejects, "local"
// does not).
var virtualExactWord = compileAll(
	`\blo\b`,
	`\bbr\b`,
	`\bdummy\b`,
	`\bwlan\b`,
	`\bath\b`,
	`\bwifi\b`,
	`\bwl\b`,
	`\bbond\b`,
	`\bveth\b`,
	`\bbridge\b`,
	`\bvirtual\b`,
	`\bnull\b`,
	`\bsit\b`,
	`\bipip\b`,
	`\bbcmsw\b`,
	`\bspu\b`,
)

// isVirtualInterface reports whether the description names a virtual, tunnel,
// loopback, wireless or bonding interface.
func isVirtualInterface(descrLower string) bool {
	for _, s := range virtualSubstrings {
		if strings.Contains(descrLower, s) {
			return true
		}
	}
	for _, re := range virtualWordStart {
		if re.MatchString(descrLower) {
			return true
		}
	}
	for _, re := range virtualExactWord {
		if re.MatchString(descrLower) {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Physical-interface acceptance
// ─────────────────────────────────────────────────────────────────────────────

// managementKeywords universally exclude management and console ports.
var managementKeywords = []string{"mgmt", "management", "console"}

// mgmtEthernetRE catches Cisco-style dedicated management ports
// (GigabitEthernet0/0) while leaving data ports like 1/0/1 alone.
var mgmtEthernetRE = regexp.MustCompile(`ethernet0/0$`)

// physicalKeywords are substrings that mark a description as a front-panel
// port on some firmware dialect.
var physicalKeywords = []string{
	"port", "eth", "ge.", "swp", "xe.", "lan", "wan", "sfp",
	"gigabit", "fasteth", "10g", "slot:", "level",
}

var (
	ciscoIfNameRE   = regexp.MustCompile(`^gigabitethernet\d+`)
	shortPortNameRE = regexp.MustCompile(`^[pg]\d+$`)
)

// digitOnlyIndexCeiling: a bare numeric description ("1", "24") counts as
// physical only while the hardware index stays below this ceiling; high
// indexes with numeric names are virtual rows on most stackable firmwares.
const digitOnlyIndexCeiling = 1000

// isPhysicalInterface reports whether the description names a front-panel
// port. Rows matching neither this nor the virtual denylist are dropped
// silently.
func isPhysicalInterface(descrLower, descrClean string, ifIndex int) bool {
	for _, k := range managementKeywords {
		if strings.Contains(descrLower, k) {
			return false
		}
	}
	if mgmtEthernetRE.MatchString(descrLower) {
		return false
	}

	if isDigits(descrClean) {
		return ifIndex < digitOnlyIndexCeiling
	}

	for _, k := range physicalKeywords {
		if strings.Contains(descrLower, k) {
			return true
		}
	}
	if ciscoIfNameRE.MatchString(descrLower) || shortPortNameRE.MatchString(descrLower) {
		return true
	}
	return strings.HasPrefix(descrLower, "slot:") && strings.Contains(descrLower, "port:")
}

// ─────────────────────────────────────────────────────────────────────────────
// Fiber / SFP media detection
// ─────────────────────────────────────────────────────────────────────────────

// fiberTypeCodes are the IANAifType values treated as fiber media.
var fiberTypeCodes = map[int]bool{
	56:  true, // fibreChannel
	161: true,
	171: true,
	172: true,
}

// fiberNameKeywords mark pluggable-optics ports by naming convention.
var fiberNameKeywords = []string{
	"sfp", "fiber", "fibre", "optical", "1000base-x", "10gbase-",
	"mini-gbic", "sfp+", "sfp28", "25g", "40g", "100g", "qsfp",
	"fortygigabit",
}

var ciscoSlotRE = regexp.MustCompile(`gigabitethernet(\d+)/(\d+)/(\d+)`)

// FiberRule is one step of the media-detection chain. Detect returns
// (decided, isFiber); the first rule that decides wins and its Method tag is
// recorded on the port entry.
type FiberRule struct {
	Method string
	Detect func(ifType int, descrLower string) (decided, isFiber bool)
}

// fiberRules is the fixed detection precedence: vendor positional rules
// first, then the ifType code, then name keywords, then copper by default.
// Order matters — a Netgear "10G - Level" port has ifType 6 and would be
// misclassified as copper if type matching ran first.
var fiberRules = []FiberRule{
	{
		Method: "netgear_10g_sfp",
		Detect: func(_ int, descr string) (bool, bool) {
			return strings.Contains(descr, "10g - level"), true
		},
	},
	{
		// Cisco stack/modular notation X/Y/Z: a module slot Y > 0 is a
		// pluggable bay, Y == 0 is fixed copper.
		Method: "cisco_module_sfp",
		Detect: func(_ int, descr string) (bool, bool) {
			m := ciscoSlotRE.FindStringSubmatch(descr)
			if m == nil {
				return false, false
			}
			return true, atoiOrZero(m[2]) > 0
		},
	},
	{
		Method: "type_match",
		Detect: func(ifType int, _ string) (bool, bool) {
			return fiberTypeCodes[ifType], true
		},
	},
	{
		Method: "name_keyword",
		Detect: func(_ int, descr string) (bool, bool) {
			for _, k := range fiberNameKeywords {
				if strings.Contains(descr, k) {
					return true, true
				}
			}
			return false, false
		},
	},
}

const (
	methodDefaultCopper    = "default_copper"
	methodCiscoFixedCopper = "cisco_fixed_copper"
)

// detectFiber runs the rule chain and returns the verdict plus the name of
// the rule that decided it.
func detectFiber(ifType int, descrLower string) (isFiber bool, method string) {
	for _, rule := range fiberRules {
		decided, fiber := rule.Detect(ifType, descrLower)
		if !decided {
			continue
		}
		if rule.Method == "cisco_module_sfp" && !fiber {
			return false, methodCiscoFixedCopper
		}
		return fiber, rule.Method
	}
	return false, methodDefaultCopper
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}
