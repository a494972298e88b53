package template

// Kind is the recognition strategy applied to a group.
type Kind int

const (
	KindUnknown Kind = iota
	KindFill
	KindExamNumber
	KindTick
	KindNumber
	KindBarcode
	KindQRCode
	KindCoordinate
)

func (k Kind) String() string {
	switch k {
	case KindFill:
		return "fill"
	case KindExamNumber:
		return "exam_number"
	case KindTick:
		return "vx"
	case KindNumber:
		return "number"
	case KindBarcode:
		return "barcode"
	case KindQRCode:
		return "qrcode"
	case KindCoordinate:
		return "coordinate"
	default:
		return "unknown"
	}
}

// IsFill reports whether groups of this kind go through the fill classifier.
func (k Kind) IsFill() bool { return k == KindFill || k == KindExamNumber }

// RecTypes maps the numeric rec_type codes of a layout to kinds.
type RecTypes struct {
	BlackFill    int `mapstructure:"black_fill" yaml:"black_fill" json:"black_fill"`
	VX           int `mapstructure:"vx" yaml:"vx" json:"vx"`
	Number       int `mapstructure:"number" yaml:"number" json:"number"`
	QRCode       int `mapstructure:"qrcode" yaml:"qrcode" json:"qrcode"`
	Barcode      int `mapstructure:"barcode" yaml:"barcode" json:"barcode"`
	Coordinate   int `mapstructure:"coordinate" yaml:"coordinate" json:"coordinate"`
	SingleSelect int `mapstructure:"single_select" yaml:"single_select" json:"single_select"`
	MultiSelect  int `mapstructure:"multi_select" yaml:"multi_select" json:"multi_select"`
	ExamNumber   int `mapstructure:"exam_number" yaml:"exam_number" json:"exam_number"`
}

// DefaultRecTypes returns the codes used by the layout editor.
func DefaultRecTypes() RecTypes {
	return RecTypes{
		BlackFill:    1,
		VX:           2,
		Number:       3,
		QRCode:       4,
		Barcode:      5,
		Coordinate:   6,
		SingleSelect: 7,
		MultiSelect:  8,
		ExamNumber:   9,
	}
}

// Kind resolves a rec_type code.
func (r RecTypes) Kind(code int) Kind {
	switch code {
	case r.BlackFill, r.SingleSelect, r.MultiSelect:
		return KindFill
	case r.ExamNumber:
		return KindExamNumber
	case r.VX:
		return KindTick
	case r.Number:
		return KindNumber
	case r.Barcode:
		return KindBarcode
	case r.QRCode:
		return KindQRCode
	case r.Coordinate:
		return KindCoordinate
	default:
		return KindUnknown
	}
}
