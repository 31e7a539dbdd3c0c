package khqr

import "strings"

var fieldNames = map[string]string{
	TagPayloadFormatIndicator: "payload_format_indicator",
	TagPointOfInitiation:      "point_of_initiation",
	TagMerchantCategoryCode:   "merchant_category_code",
	TagTransactionCurrency:    "transaction_currency",
	TagTransactionAmount:      "transaction_amount",
	TagCountryCode:            "country_code",
	TagMerchantName:           "merchant_name",
	TagMerchantCity:           "merchant_city",
	TagAdditionalData:         "additional_data",
}

// Build 构建带 CRC 的载荷字符串
//
// 输出顺序固定：00, 01, 商户账户, 52, 53, 54, 58, 59, 60, 62, 扩展标签(升序), 63。
// AdditionalData 为 nil 时不输出 62，为空 map 时输出 6200。
// 任何字段不合法都返回 *PayloadValidationError，不会返回部分结果。
func Build(in *PaymentPayloadInput) (string, error) {
	if in == nil {
		return "", invalid("input", "is nil")
	}
	if err := in.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, f := range in.Fields() {
		s, err := f.Encode()
		if err != nil {
			return "", &PayloadValidationError{Field: fieldName(f.Tag), Reason: "cannot encode", Err: err}
		}
		b.WriteString(s)
	}

	b.WriteString(TagCRC + "04")
	body := b.String()
	return body + ComputeCRC16(body), nil
}

// Fields 按输出顺序展开为字段（不含 CRC）
func (in *PaymentPayloadInput) Fields() []Field {
	fields := []Field{{Tag: TagPayloadFormatIndicator, Value: PayloadFormatIndicator}}
	if in.PointOfInitiation != "" {
		fields = append(fields, Field{Tag: TagPointOfInitiation, Value: string(in.PointOfInitiation)})
	}

	account := Field{
		Tag: in.accountTag(),
		Children: []Field{
			{Tag: SubTagGUID, Value: in.MerchantAccount.GUID},
			{Tag: SubTagMerchantID, Value: in.MerchantAccount.MerchantID},
		},
	}
	account.Children = append(account.Children, sortedFields(in.MerchantAccount.Extra)...)
	fields = append(fields,
		account,
		Field{Tag: TagMerchantCategoryCode, Value: in.MerchantCategoryCode},
		Field{Tag: TagTransactionCurrency, Value: in.TransactionCurrency},
	)

	if in.TransactionAmount != nil {
		fields = append(fields, Field{Tag: TagTransactionAmount, Value: FormatAmount(*in.TransactionAmount)})
	}

	fields = append(fields,
		Field{Tag: TagCountryCode, Value: in.CountryCode},
		Field{Tag: TagMerchantName, Value: in.MerchantName},
		Field{Tag: TagMerchantCity, Value: in.MerchantCity},
	)

	if in.AdditionalData != nil {
		fields = append(fields, Field{Tag: TagAdditionalData, Children: sortedFields(in.AdditionalData)})
	}

	return append(fields, sortedFields(in.Extensions)...)
}

func fieldName(tag string) string {
	if name, ok := fieldNames[tag]; ok {
		return name
	}
	if IsMerchantAccountTag(tag) {
		return "merchant_account"
	}
	return "extensions." + tag
}
