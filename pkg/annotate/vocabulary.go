package annotate

// indicatorLabels 指标识别的固定标签集合，作为识别目标发送给服务端
var indicatorLabels = []string{
	"Excited",
	"Angry",
	"Embarrassed",
	"Pain",
	"Goal",
	"Obstacle",
	"Workaround",
	"Background",
	"Feature request",
	"Money",
	"Mentioned specific person or company",
	"Follow-up task",
}

// IndicatorLabels 返回指标标签集合的副本
func IndicatorLabels() []string {
	labels := make([]string, len(indicatorLabels))
	copy(labels, indicatorLabels)
	return labels
}

// IsIndicatorLabel 判断是否属于指标标签集合
func IsIndicatorLabel(label string) bool {
	for _, l := range indicatorLabels {
		if l == label {
			return true
		}
	}
	return false
}
