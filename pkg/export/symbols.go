package export

// indicatorSymbols 指标标签到显示符号的映射
var indicatorSymbols = map[string]string{
	"Excited":                              ":)",
	"Angry":                                ":(",
	"Embarrassed":                          ":|",
	"Pain":                                 "☇",
	"Goal":                                 "⨅",
	"Obstacle":                             "☐",
	"Workaround":                           "⤴",
	"Background":                           "^",
	"Feature request":                      "☑",
	"Money":                                "＄",
	"Mentioned specific person or company": "♀",
	"Follow-up task":                       "☆",
}

// emotionSymbols 情绪标签到显示符号的映射
var emotionSymbols = map[string]string{
	"joy":      ":)",
	"sadness":  ":(",
	"anger":    ">:{",
	"fear":     "D:",
	"disgust":  ":{",
	"surprise": ":O",
	"neutral":  ":|",
}

// IndicatorSymbol 返回指标标签的符号，未知标签返回空字符串
func IndicatorSymbol(label string) string {
	return indicatorSymbols[label]
}

// EmotionSymbol 返回情绪标签的符号，未知标签返回空字符串
func EmotionSymbol(label string) string {
	return emotionSymbols[label]
}
