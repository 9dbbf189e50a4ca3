package mapping

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/evaluator"
)

// DecodeOption configures Unmarshal and LoadFile.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	logger tabmap.Logger
}

// WithLogger sets the logger told about legacy content dropped while
// migrating a document.
func WithLogger(l tabmap.Logger) DecodeOption {
	return func(o *decodeOptions) {
		o.logger = l
	}
}

// migrateLegacy rewrites keys written by older versions of the document:
// column advanced_format becomes advanced_code and rule ref_target becomes ref.
// Legacy formulas that do not compile as expressions are dropped.
func migrateLegacy(data []byte, o decodeOptions) ([]byte, error) {
	var err error
	sheets := gjson.GetBytes(data, "sheets").Array()
	for si, sheet := range sheets {
		for ci, col := range sheet.Get("columns").Array() {
			base := fmt.Sprintf("sheets.%d.columns.%d", si, ci)

			if legacy := col.Get("advanced_format"); legacy.Exists() {
				if code := col.Get("advanced_code"); !code.Exists() || code.Type == gjson.Null {
					if src := legacy.String(); legacy.Type == gjson.String && src != "" {
						if _, cerr := evaluator.Compile(src); cerr != nil {
							if o.logger != nil {
								o.logger.Warn("Dropping legacy advanced_format that is not a valid expression",
									"sheet", sheet.Get("target_sheet").String(),
									"column", col.Get("target").String(),
									"error", cerr)
							}
						} else if data, err = sjson.SetBytes(data, base+".advanced_code", src); err != nil {
							return nil, err
						}
					}
				}
				if data, err = sjson.DeleteBytes(data, base+".advanced_format"); err != nil {
					return nil, err
				}
			}

			for ri, rule := range col.Get("advanced_rules").Array() {
				legacy := rule.Get("ref_target")
				if !legacy.Exists() {
					continue
				}
				path := fmt.Sprintf("%s.advanced_rules.%d", base, ri)
				// An empty ref counts as missing.
				if ref := rule.Get("ref"); ref.String() == "" && legacy.String() != "" {
					if data, err = sjson.SetBytes(data, path+".ref", legacy.String()); err != nil {
						return nil, err
					}
				}
				if data, err = sjson.DeleteBytes(data, path+".ref_target"); err != nil {
					return nil, err
				}
			}
		}
	}
	return data, nil
}
