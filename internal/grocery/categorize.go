// Package grocery guesses a shopping category from an item name.
package grocery

import (
	"strings"
	"unicode"
)

const (
	Produce      = "Овощи и фрукты"
	Dairy        = "Молочное"
	Meat         = "Мясо и рыба"
	Bakery       = "Хлеб и выпечка"
	Pantry       = "Бакалея"
	Frozen       = "Заморозка"
	Beverages    = "Напитки"
	Snacks       = "Сладкое и снеки"
	Household    = "Хозтовары"
	PersonalCare = "Гигиена"
	Pharmacy     = "Аптека"
	Other        = "Другое"
)

// Categorize returns the category for an item name. Phrases are matched
// first, then word stems so that inflected forms ("молока", "яблоки") match.
// Unknown items fall back to Other.
func Categorize(itemName string) string {
	name := normalize(itemName)
	if name == "" {
		return Other
	}

	for _, p := range phrases {
		if strings.Contains(name, p.text) {
			return p.category
		}
	}

	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rule := range stems {
		for _, w := range words {
			for _, stem := range rule.stems {
				if strings.HasPrefix(w, stem) {
					return rule.category
				}
			}
		}
	}
	return Other
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ё", "е")
}

type phrase struct {
	text     string
	category string
}

// phrases hold multi-word names whose words alone would be misleading.
var phrases = []phrase{
	{"мороженое", Frozen},
	{"ice cream", Frozen},
	{"зубная паста", PersonalCare},
	{"туалетная бумага", Household},
	{"бумажные полотенца", Household},
	{"paper towel", Household},
	{"toilet paper", Household},
	{"кокосовое молоко", Pantry},
	{"сливочное масло", Dairy},
	{"масло сливочное", Dairy},
	{"сгущенное молоко", Snacks},
	{"минеральная вода", Beverages},
	{"green beans", Produce},
	{"peanut butter", Pantry},
}

type stemRule struct {
	category string
	stems    []string
}

// stems are checked in order, so narrower categories come first.
var stems = []stemRule{
	{Frozen, []string{"заморож", "пельмен", "вареник", "frozen"}},
	{Pharmacy, []string{"аспирин", "парацетамол", "ибупрофен", "бинт", "пластыр", "йод", "витамин", "таблет", "капл", "сироп", "градусник"}},
	{Dairy, []string{"молок", "кефир", "творог", "сметан", "сливк", "сыр", "йогурт", "ряженк", "яйц", "яйк", "milk", "cheese", "yogurt", "butter", "eggs", "cream"}},
	{Meat, []string{"мяс", "говяд", "свинин", "курин", "курица", "индейк", "фарш", "колбас", "сосиск", "ветчин", "рыб", "лосос", "семг", "креветк", "chicken", "beef", "pork", "fish", "salmon", "bacon", "turkey", "sausage"}},
	{Bakery, []string{"хлеб", "батон", "булк", "булоч", "лаваш", "багет", "пирог", "bread", "bagel", "bun", "tortilla"}},
	{Produce, []string{"яблок", "банан", "апельсин", "мандарин", "лимон", "груш", "виноград", "клубник", "арбуз", "помидор", "томат", "огур", "картош", "картоф", "морков", "лук", "чеснок", "капуст", "свекл", "перец", "кабачок", "зелен", "укроп", "петрушк", "салат", "гриб", "apple", "banana", "orange", "lemon", "tomato", "potato", "onion", "garlic", "lettuce", "carrot", "spinach", "berries", "grapes"}},
	{Pantry, []string{"круп", "гречк", "рис", "овсян", "макарон", "спагет", "мук", "сахар", "соль", "масл", "уксус", "соус", "кетчуп", "майонез", "консерв", "горох", "фасол", "чечевиц", "специ", "rice", "pasta", "flour", "sugar", "salt", "oil", "sauce", "beans", "cereal"}},
	{Beverages, []string{"вод", "сок", "чай", "кофе", "лимонад", "компот", "пиво", "вино", "water", "juice", "tea", "coffee", "soda", "beer", "wine"}},
	{Snacks, []string{"шоколад", "конфет", "печень", "чипс", "орех", "сухар", "вафл", "зефир", "пряник", "chocolate", "cookies", "chips", "candy", "nuts", "crackers"}},
	{Household, []string{"порош", "моющ", "губк", "салфет", "пакет", "фольг", "батарейк", "лампочк", "отбелив", "detergent", "sponge", "trash bags", "batteries", "foil"}},
	{PersonalCare, []string{"шампун", "мыло", "гель", "дезодорант", "бритв", "подгузн", "прокладк", "крем", "щетк", "shampoo", "soap", "toothpaste", "deodorant", "diapers", "razor"}},
}
