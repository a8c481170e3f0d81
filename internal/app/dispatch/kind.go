package dispatch

import "strconv"

// Kind tags a request variant. The set is closed: every request type in the application
// returns one of these constants from its Kind method.
type Kind int

const (
	KindRegister Kind = iota + 1
	KindLogin
	KindPhotoURL
	KindApply
	KindViewPass
	KindViewPasses
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "Register"
	case KindLogin:
		return "Login"
	case KindPhotoURL:
		return "PhotoURL"
	case KindApply:
		return "Apply"
	case KindViewPass:
		return "ViewPass"
	case KindViewPasses:
		return "ViewPasses"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Kinds lists every request variant, in declaration order.
func Kinds() []Kind {
	return []Kind{KindRegister, KindLogin, KindPhotoURL, KindApply, KindViewPass, KindViewPasses}
}
