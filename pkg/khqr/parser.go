package khqr

import "github.com/shopspring/decimal"

// Parse 解析载荷并校验 CRC 和字段取值
//
// 未识别的顶层标签保存在 Extensions，商户账户中未识别的子标签保存在 MerchantAccount.Extra。
// 字段取值按 Build 的规则校验，Build 拒绝的输入 Parse 同样拒绝。
func Parse(payload string) (*PaymentPayloadInput, error) {
	fields, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	return FromFields(fields)
}

// FromFields 把 Decode 的结果映射为输入结构并校验
func FromFields(fields []Field) (*PaymentPayloadInput, error) {
	in := &PaymentPayloadInput{}
	seen := make(map[string]bool, len(fields))
	accountFound := false

	for _, f := range fields {
		if f.Tag == TagCRC {
			continue
		}
		if seen[f.Tag] {
			return nil, invalid(fieldName(f.Tag), "duplicate tag "+f.Tag)
		}
		seen[f.Tag] = true

		switch {
		case f.Tag == TagPayloadFormatIndicator:
			in.PayloadFormatIndicator = f.Value
		case f.Tag == TagPointOfInitiation:
			in.PointOfInitiation = InitiationMethod(f.Value)
		case IsMerchantAccountTag(f.Tag) && !accountFound:
			accountFound = true
			in.MerchantAccount = parseMerchantAccount(f)
		case f.Tag == TagMerchantCategoryCode:
			in.MerchantCategoryCode = f.Value
		case f.Tag == TagTransactionCurrency:
			in.TransactionCurrency = f.Value
		case f.Tag == TagTransactionAmount:
			if !isAmountText(f.Value) {
				return nil, invalid("transaction_amount", "not a number")
			}
			amount, err := decimal.NewFromString(f.Value)
			if err != nil {
				return nil, &PayloadValidationError{Field: "transaction_amount", Reason: "not a number", Err: err}
			}
			in.TransactionAmount = &amount
		case f.Tag == TagCountryCode:
			in.CountryCode = f.Value
		case f.Tag == TagMerchantName:
			in.MerchantName = f.Value
		case f.Tag == TagMerchantCity:
			in.MerchantCity = f.Value
		case f.Tag == TagAdditionalData:
			// 空的 6200 保留为非 nil 的空 map，重新构建时原样输出
			in.AdditionalData = make(map[string]string, len(f.Children))
			for _, child := range f.Children {
				in.AdditionalData[child.Tag] = child.Value
			}
		default:
			if in.Extensions == nil {
				in.Extensions = make(map[string]string)
			}
			in.Extensions[f.Tag] = f.Value
		}
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// Verify 只校验结构和 CRC
func Verify(payload string) error {
	_, err := Decode(payload)
	return err
}

// Decode 按顺序返回顶层字段（含最后的 CRC 字段），模板字段的子字段填入 Children
func Decode(payload string) ([]Field, error) {
	var fields []Field
	offset := 0
	for {
		if offset >= len(payload) {
			return nil, &TruncatedPayloadError{Offset: offset, Needed: headerLength + 4, Remained: 0}
		}

		tag, value, next, err := DecodeNextField(payload, offset)
		if err != nil {
			return nil, err
		}

		if tag == TagCRC {
			if err := checkCRC(payload, offset, value, next); err != nil {
				return nil, err
			}
			return append(fields, Field{Tag: tag, Value: value}), nil
		}

		f := Field{Tag: tag, Value: value}
		if isTemplateTag(tag) && value != "" {
			children, err := DecodeFields(value)
			if err != nil {
				return nil, err
			}
			f.Children = children
		}
		fields = append(fields, f)
		offset = next
	}
}

func checkCRC(payload string, offset int, declared string, next int) error {
	if len(declared) != 4 {
		return invalid("crc", "must be 4 hex digits")
	}
	if next != len(payload) {
		return &UnexpectedTrailingDataError{Offset: next, Trailing: payload[next:]}
	}

	expected := ComputeCRC16(payload[:offset+headerLength])
	if declared != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: declared}
	}
	return nil
}

// isAmountText 只接受 "123" 或 "123.45" 形式，排除符号和指数写法
func isAmountText(s string) bool {
	dot := false
	digits := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.' && !dot && digits > 0:
			dot = true
		default:
			return false
		}
	}
	return digits > 0 && s[len(s)-1] != '.'
}

func parseMerchantAccount(f Field) MerchantAccount {
	account := MerchantAccount{Tag: f.Tag}
	for _, child := range f.Children {
		switch child.Tag {
		case SubTagGUID:
			account.GUID = child.Value
		case SubTagMerchantID:
			account.MerchantID = child.Value
		default:
			if account.Extra == nil {
				account.Extra = make(map[string]string)
			}
			account.Extra[child.Tag] = child.Value
		}
	}
	return account
}
