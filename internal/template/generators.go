package template

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prasenjit/go-mockapi/internal/random"
)

var (
	firstNames = []string{"John", "Jane", "Bob", "Alice", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry", "Ivy", "Jack", "Karen", "Liam", "Mia", "Noah", "Olivia", "Paul"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Martinez", "Lopez", "Wilson", "Anderson", "Taylor", "Thomas", "Moore", "Clark"}
	genders    = []string{"male", "female"}
	domains    = []string{"example.com", "example.org", "mail.test", "inbox.test"}
	countries  = []string{"United States", "Canada", "United Kingdom", "Germany", "France", "Spain", "Italy", "Japan", "Australia", "Brazil", "India", "Mexico"}
	cities     = []string{"New York", "London", "Paris", "Berlin", "Madrid", "Rome", "Tokyo", "Sydney", "Toronto", "Chicago", "Austin", "Seattle"}
	streets    = []string{"Main", "Oak", "Pine", "Maple", "Cedar", "Elm", "Washington", "Lake", "Hill", "Park"}
	suffixes   = []string{"St", "Ave", "Blvd", "Rd", "Ln", "Dr"}
	states     = []string{"NY", "CA", "TX", "WA", "IL", "MA", "FL", "CO"}
	loremWords = []string{"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit", "sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore", "et", "dolore", "magna", "aliqua", "enim", "minim", "veniam", "quis", "nostrud"}
	statuses   = []int{200, 201, 202, 204, 301, 302, 304, 400, 401, 403, 404, 409, 422, 429, 500, 502, 503}
	companies  = []string{"Acme Corp", "Globex", "Initech", "Umbrella Inc", "Stark Industries", "Wayne Enterprises", "Hooli", "Vandelay Industries", "Soylent Co", "Wonka Industries"}
	jobTitles  = []string{"Software Engineer", "Product Manager", "Designer", "Data Analyst", "Account Executive", "Support Specialist", "Engineering Manager", "QA Engineer", "DevOps Engineer", "Marketing Lead"}
	adjectives = []string{"Ergonomic", "Sleek", "Rustic", "Handcrafted", "Practical", "Smart", "Gorgeous", "Refined", "Compact", "Wireless"}
	products   = []string{"Laptop", "Chair", "Keyboard", "Mouse", "Monitor", "Lamp", "Backpack", "Headphones", "Watch", "Table"}
	colors     = []string{"red", "blue", "green", "yellow", "purple", "orange", "black", "white", "gray", "teal"}
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	isoMillis    = "2006-01-02T15:04:05.000Z07:00"
)

// DefaultRegistry builds the built-in tag table. Every generator draws from
// rng and reads the current time from now.
func DefaultRegistry(rng random.Source, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	g := &generators{rng: rng, now: now}

	return NewRegistry(map[string]Generator{
		"firstname":      g.firstName,
		"lastname":       g.lastName,
		"fullname":       g.fullName,
		"gender":         g.pick(genders),
		"email":          g.email,
		"phone":          g.phone,
		"age":            g.age,
		"country":        g.pick(countries),
		"city":           g.pick(cities),
		"street":         g.street,
		"address":        g.address,
		"zipcode":        g.zipcode,
		"date":           g.date,
		"datetime":       g.datetime,
		"sentence":       g.sentence,
		"paragraph":      g.paragraph,
		"url":            g.url,
		"word":           g.pick(loremWords),
		"number":         g.number,
		"float":          g.float,
		"boolean":        g.boolean,
		"httpStatusCode": g.httpStatusCode,
		"jwt":            g.jwt,
		"uuid":           g.uuid,
		"string":         g.string,
		"username":       g.username,
		"password":       g.password,
		"company":        g.pick(companies),
		"jobTitle":       g.pick(jobTitles),
		"price":          g.price,
		"product":        g.product,
		"color":          g.pick(colors),
		"image":          g.image,
		"avatar":         g.avatar,
	})
}

type generators struct {
	rng random.Source
	now func() time.Time
}

func (g *generators) pick(items []string) Generator {
	return func() interface{} {
		return random.Pick(g.rng, items)
	}
}

func (g *generators) firstName() interface{} {
	return random.Pick(g.rng, firstNames)
}

func (g *generators) lastName() interface{} {
	return random.Pick(g.rng, lastNames)
}

func (g *generators) fullName() interface{} {
	return random.Pick(g.rng, firstNames) + " " + random.Pick(g.rng, lastNames)
}

func (g *generators) email() interface{} {
	first := strings.ToLower(random.Pick(g.rng, firstNames))
	last := strings.ToLower(random.Pick(g.rng, lastNames))
	return fmt.Sprintf("%s.%s%d@%s", first, last, g.rng.Intn(100), random.Pick(g.rng, domains))
}

func (g *generators) phone() interface{} {
	return fmt.Sprintf("+1-%03d-%03d-%04d", g.rng.Intn(1000), g.rng.Intn(1000), g.rng.Intn(10000))
}

func (g *generators) age() interface{} {
	return random.Between(g.rng, 18, 79)
}

func (g *generators) street() interface{} {
	return fmt.Sprintf("%d %s %s", random.Between(g.rng, 1, 9999), random.Pick(g.rng, streets), random.Pick(g.rng, suffixes))
}

func (g *generators) address() interface{} {
	return fmt.Sprintf("%s, %s, %s %05d", g.street(), random.Pick(g.rng, cities), random.Pick(g.rng, states), g.rng.Intn(100000))
}

func (g *generators) zipcode() interface{} {
	return fmt.Sprintf("%05d", g.rng.Intn(100000))
}

// recent returns a moment within the last thirty days
func (g *generators) recent() time.Time {
	back := time.Duration(g.rng.Intn(30*24*3600)) * time.Second
	return g.now().UTC().Add(-back)
}

func (g *generators) date() interface{} {
	return g.recent().Format("2006-01-02")
}

func (g *generators) datetime() interface{} {
	return g.recent().Format(isoMillis)
}

func (g *generators) words(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = random.Pick(g.rng, loremWords)
	}
	return words
}

func (g *generators) sentence() interface{} {
	words := g.words(random.Between(g.rng, 4, 10))
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ") + "."
}

func (g *generators) paragraph() interface{} {
	sentences := make([]string, random.Between(g.rng, 3, 5))
	for i := range sentences {
		sentences[i] = g.sentence().(string)
	}
	return strings.Join(sentences, " ")
}

func (g *generators) url() interface{} {
	return fmt.Sprintf("https://%s.%s", random.Pick(g.rng, loremWords), random.Pick(g.rng, domains))
}

func (g *generators) number() interface{} {
	return g.rng.Intn(1000)
}

func (g *generators) float() interface{} {
	return math.Round(g.rng.Float64()*1000*100) / 100
}

func (g *generators) boolean() interface{} {
	return g.rng.Intn(2) == 1
}

func (g *generators) httpStatusCode() interface{} {
	return statuses[g.rng.Intn(len(statuses))]
}

func (g *generators) jwt() interface{} {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims := enc.EncodeToString([]byte(fmt.Sprintf(`{"sub":"%s","iat":%d}`, g.uuid(), g.now().Unix())))

	sig := make([]byte, 32)
	g.rng.Read(sig)
	return header + "." + claims + "." + enc.EncodeToString(sig)
}

func (g *generators) uuid() interface{} {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *generators) randomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumeric[g.rng.Intn(len(alphanumeric))]
	}
	return string(b)
}

func (g *generators) string() interface{} {
	return g.randomString(10)
}

func (g *generators) username() interface{} {
	return fmt.Sprintf("%s%s%d", strings.ToLower(random.Pick(g.rng, firstNames)), strings.ToLower(random.Pick(g.rng, lastNames)), g.rng.Intn(100))
}

func (g *generators) password() interface{} {
	return g.randomString(12)
}

func (g *generators) price() interface{} {
	return float64(g.rng.Intn(10000)) / 100
}

func (g *generators) product() interface{} {
	return random.Pick(g.rng, adjectives) + " " + random.Pick(g.rng, products)
}

func (g *generators) image() interface{} {
	return fmt.Sprintf("https://picsum.photos/seed/%d/200/300", g.rng.Intn(1000))
}

func (g *generators) avatar() interface{} {
	return fmt.Sprintf("https://i.pravatar.cc/150?img=%d", random.Between(g.rng, 1, 70))
}
