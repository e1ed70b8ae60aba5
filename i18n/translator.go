package i18n

// Translator retrieves localized messages for diagnostic codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "ExpectedBoolean":
			return "真偽値が必要です"
		case "ExpectedNumber":
			return "数値が必要です"
		case "ExpectedString":
			return "文字列が必要です"
		case "ExpectedObject":
			return "オブジェクトが必要です"
		case "ExpectedArray":
			return "配列が必要です"
		case "InvalidValue":
			return "値が不正です"
		case "OutOfRange":
			return "範囲外です"
		case "LengthConstraint":
			return "長さ制約に違反しています"
		case "UnexpectedProperty":
			return "未知のプロパティです"
		case "MissingProperty":
			return "必須プロパティが不足しています"
		case "NoAccess":
			return "アクセス権がありません"
		case "InvalidFormat":
			return "書式が不正です"
		case "PatternMismatch":
			return "パターンに一致しません"
		}
	default: // "en"
		switch code {
		case "ExpectedBoolean":
			return "boolean expected"
		case "ExpectedNumber":
			return "number expected"
		case "ExpectedString":
			return "string expected"
		case "ExpectedObject":
			return "object expected"
		case "ExpectedArray":
			return "array expected"
		case "InvalidValue":
			return "invalid value"
		case "OutOfRange":
			return "out of range"
		case "LengthConstraint":
			return "length constraint violated"
		case "UnexpectedProperty":
			return "unexpected property"
		case "MissingProperty":
			return "required property missing"
		case "NoAccess":
			return "no access"
		case "InvalidFormat":
			return "invalid format"
		case "PatternMismatch":
			return "pattern mismatch"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
