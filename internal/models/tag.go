package models

// Tag categories partition the attribute space used by the matcher.
const (
	TagCategoryIndustry = "industry"
	TagCategoryInterest = "interest"
	TagCategoryNeed     = "need"
	TagCategoryService  = "service"
)

// Tag is an attribute label that can be assigned to members. Each tag belongs
// to exactly one category; renames are allowed but the category is fixed once
// members reference the tag.
type Tag struct {
	BaseModel

	Name     string `gorm:"not null;uniqueIndex:idx_tag_name_category,priority:1" json:"name"`
	Category string `gorm:"not null;uniqueIndex:idx_tag_name_category,priority:2;index" json:"category"`
}

// ValidTagCategory reports whether the supplied category is one of the four
// known tag categories.
func ValidTagCategory(category string) bool {
	switch category {
	case TagCategoryIndustry, TagCategoryInterest, TagCategoryNeed, TagCategoryService:
		return true
	}
	return false
}
