package discord

import "strconv"

// Guild permission bits
const (
	PermKickMembers     uint64 = 1 << 1
	PermBanMembers      uint64 = 1 << 2
	PermAdministrator   uint64 = 1 << 3
	PermManageGuild     uint64 = 1 << 5
	PermManageMessages  uint64 = 1 << 13
	PermModerateMembers uint64 = 1 << 40
)

// ParsePermissions decodes Discord's decimal-string permission field; junk is zero.
func ParsePermissions(s string) uint64 {
	p, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return p
}

func IsAdminPermission(p uint64) bool {
	return p&(PermAdministrator|PermManageGuild) != 0
}

func IsModeratorPermission(p uint64) bool {
	return p&(PermManageMessages|PermModerateMembers|PermKickMembers|PermBanMembers) != 0
}
