package tour

import (
	"fmt"

	"natours/validation"
)

// 校验信息
const (
	MsgNameRequired        = "A tour must have a name"
	MsgNameMax             = "A tour name must have less or equal then 50 characters"
	MsgNameMin             = "A tour name must have more or equal then 3 characters"
	MsgNameAlpha           = "Tour name must only contain characters."
	MsgDurationRequired    = "A tour must have a duration"
	MsgMaxGroupRequired    = "A tour must have a max group size"
	MsgDifficultyRequired  = "A tour must have a difficulty"
	MsgDifficultyEnum      = "Difficulty is either: easy, medium, difficult"
	MsgRatingMax           = "Rating must be below 5.0"
	MsgRatingMin           = "Rating must be above 1.0"
	MsgPriceRequired       = "A tour must have a price"
	MsgSummaryRequired     = "A tour must have a description"
	MsgImageCoverRequired  = "A tour must have a cover image"
	msgDiscountBelowPriceF = "Discount price (%v) should be below regular price."
)

const (
	nameMinLen = 3
	nameMaxLen = 40
)

// Validate 实现 domain.IValidatable，按字段声明顺序收集全部失败信息
func (t *Tour) Validate() error {
	var c validation.Collector

	if c.Required(t.Name, MsgNameRequired) {
		if c.Length(t.Name, nameMinLen, nameMaxLen, MsgNameMin, MsgNameMax) {
			c.Check(validation.IsAlphaWords(t.Name), MsgNameAlpha)
		}
	}
	c.Check(t.Duration > 0, MsgDurationRequired)
	c.Check(t.MaxGroupSize > 0, MsgMaxGroupRequired)
	if c.Required(string(t.Difficulty), MsgDifficultyRequired) {
		c.Enum(string(t.Difficulty), Difficulties, MsgDifficultyEnum)
	}
	c.Range(t.RatingsAverage, 1, 5, MsgRatingMin, MsgRatingMax)
	c.Check(t.Price > 0, MsgPriceRequired)
	if t.PriceDiscount != nil {
		c.Check(*t.PriceDiscount < t.Price, fmt.Sprintf(msgDiscountBelowPriceF, *t.PriceDiscount))
	}
	c.Required(t.Summary, MsgSummaryRequired)
	c.Required(t.ImageCover, MsgImageCoverRequired)

	return c.Err()
}
