package template

// Category groups related tags for display
type Category struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Sample is a ready-made response template
type Sample struct {
	Name     string `json:"name"`
	Template string `json:"template"`
	Array    bool   `json:"array"`
}

// Categories returns the tag catalogue. A tag may appear in several categories.
func Categories() []Category {
	return []Category{
		{Name: "Person", Tags: []string{"firstname", "lastname", "fullname", "gender", "age", "username", "jobTitle"}},
		{Name: "Contact", Tags: []string{"email", "phone"}},
		{Name: "Location", Tags: []string{"country", "city", "street", "address", "zipcode"}},
		{Name: "Date & Time", Tags: []string{"date", "datetime"}},
		{Name: "Content", Tags: []string{"sentence", "paragraph", "word", "string"}},
		{Name: "Internet", Tags: []string{"url", "email", "username", "password", "jwt"}},
		{Name: "Numbers", Tags: []string{"number", "float", "age", "price", "httpStatusCode"}},
		{Name: "Commerce", Tags: []string{"company", "product", "price", "color"}},
		{Name: "Media", Tags: []string{"image", "avatar"}},
		{Name: "Data", Tags: []string{"uuid", "boolean", "string"}},
	}
}

// Samples returns the starter templates
func Samples() []Sample {
	return []Sample{
		{Name: "user", Template: `{
  "id": "<<uuid>>",
  "name": "<<fullname>>",
  "email": "<<email>>",
  "age": "<<age>>",
  "address": {
    "street": "<<street>>",
    "city": "<<city>>",
    "country": "<<country>>"
  },
  "createdAt": "<<datetime>>"
}`},
		{Name: "product", Template: `{
  "id": "<<uuid>>",
  "name": "<<product>>",
  "price": "<<price>>",
  "description": "<<sentence>>",
  "company": "<<company>>",
  "color": "<<color>>",
  "image": "<<image>>"
}`},
		{Name: "post", Template: `{
  "id": "<<uuid>>",
  "title": "<<sentence>>",
  "content": "<<paragraph>>",
  "author": "<<fullname>>",
  "publishedAt": "<<datetime>>",
  "views": "<<number>>"
}`},
		{Name: "array", Array: true, Template: `[
  {
    "id": "<<uuid>>",
    "name": "<<fullname>>",
    "email": "<<email>>"
  }
]`},
	}
}
