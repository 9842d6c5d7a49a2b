package domain

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Platform is the sales channel a customer was acquired on.
type Platform string

const (
	PlatformXiaohongshu Platform = "xiaohongshu"
	PlatformXianyu      Platform = "xianyu"
)

func (p Platform) Valid() bool {
	return p == PlatformXiaohongshu || p == PlatformXianyu
}

// DisplayName is the English name used in prompts.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformXiaohongshu:
		return "Xiaohongshu (Little Red Book)"
	case PlatformXianyu:
		return "Xianyu (Idle Fish)"
	default:
		return string(p)
	}
}

type SectionType string

const (
	SectionTip   SectionType = "tip"
	SectionGuide SectionType = "guide"
)

func (t SectionType) Valid() bool {
	return t == SectionTip || t == SectionGuide
}
