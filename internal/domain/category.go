package domain

// Category 受限流管控的动作类别
type Category string

const (
	CategoryRewardedVideo Category = "rewarded_video"
	CategoryInterstitial  Category = "interstitial"
	CategoryBanner        Category = "banner"
)

func (c Category) String() string {
	return string(c)
}

func (c Category) Validate() bool {
	return c == CategoryRewardedVideo || c == CategoryInterstitial || c == CategoryBanner
}

// Categories 返回全部类别，顺序固定。
func Categories() []Category {
	return []Category{CategoryRewardedVideo, CategoryInterstitial, CategoryBanner}
}
