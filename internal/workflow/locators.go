// internal/workflow/locators.go
package workflow

import (
	"github.com/xkilldash9x/crossbrowse/api/schemas"
)

// Locator sets for the demo store. Earlier entries are the most stable.

func signInLocators() schemas.LocatorSet {
	return schemas.LocatorSet{
		schemas.ID("signin"),
		schemas.CSS("#signin"),
		schemas.CSS("a#signin"),
		schemas.CSS("a[href*='signin']"),
	}
}

// selectorLocators addresses a react-select dropdown by its container id.
func selectorLocators(id string) schemas.LocatorSet {
	return schemas.LocatorSet{
		schemas.ID(id),
		schemas.CSS("#" + id),
		schemas.CSS("div#" + id),
		schemas.XPath("//div[@id=" + schemas.XPathLiteral(id) + "]"),
	}
}

// optionLocators addresses the dropdown option labelled text. firstOptionID
// is the id react-select gives the first option of this dropdown and is only
// tried after every text match.
func optionLocators(text, firstOptionID string) schemas.LocatorSet {
	lit := schemas.XPathLiteral(text)
	return schemas.LocatorSet{
		schemas.XPath("//div[contains(@id, 'react-select')][contains(@id, 'option')][contains(., " + lit + ")]"),
		schemas.XPath("//div[@role='option'][contains(., " + lit + ")]"),
		schemas.XPath("//div[contains(text(), " + lit + ")]"),
		schemas.XPath("//div[contains(@class, 'option')][contains(., " + lit + ")]"),
		schemas.CSS("#" + firstOptionID),
	}
}

func loginButtonLocators() schemas.LocatorSet {
	return schemas.LocatorSet{
		schemas.ID("login-btn"),
		schemas.CSS("#login-btn"),
		schemas.XPath("//button[@id='login-btn']"),
	}
}

// shelfLocators find the product listing shown after a successful login.
func shelfLocators() schemas.LocatorSet {
	return schemas.LocatorSet{
		schemas.CSS(".shelf-container"),
		schemas.CSS(".shelf-item"),
	}
}

func brandFilterLocators(brand string) schemas.LocatorSet {
	lit := schemas.XPathLiteral(brand)
	return schemas.LocatorSet{
		schemas.XPath("//div[contains(@class, 'filters-available-size')]//label[contains(., " + lit + ")]//span[contains(@class, 'checkmark')]"),
		schemas.XPath("//span[text()=" + lit + "]/preceding-sibling::span[@class='checkmark']"),
		schemas.XPath("//span[text()=" + lit + "]"),
		schemas.XPath("//label[contains(., " + lit + ")]"),
	}
}

// productCardLocators resolve to the product card whose title contains product.
func productCardLocators(product string) schemas.LocatorSet {
	lit := schemas.XPathLiteral(product)
	return schemas.LocatorSet{
		schemas.XPath("//div[contains(@class, 'shelf-item')][.//*[contains(@class, 'shelf-item__title')][contains(., " + lit + ")]]"),
		schemas.XPath("//*[contains(@class, 'shelf-item__title')][contains(., " + lit + ")]/ancestor::div[contains(@class, 'shelf-item')][1]"),
	}
}

// Card scan used when the card locators do not resolve.
var (
	productCardCSS  = schemas.CSS(".shelf-item")
	productTitleCSS = schemas.CSS(".shelf-item__title")
)

// favoriteLocators are scoped to the product card.
func favoriteLocators() schemas.LocatorSet {
	return schemas.LocatorSet{
		schemas.CSS(".shelf-stopper button"),
		schemas.CSS(".shelf-stopper"),
		schemas.CSS("button"),
	}
}

func favoritesViewLocators() schemas.LocatorSet {
	return schemas.LocatorSet{
		schemas.CSS("a[href='/favourites']"),
		schemas.ID("favourites"),
		schemas.CSS("a[href='/favorites']"),
		schemas.XPath("//a[contains(@href, 'favourite')]"),
		schemas.XPath("//a[contains(@href, 'favorite')]"),
		schemas.CSS(".navbar-nav a[href*='fav']"),
		schemas.XPath("//a[contains(., 'Favourite')]"),
		schemas.XPath("//a[contains(., 'Favorite')]"),
	}
}

func favoritedProductLocators(product string) schemas.LocatorSet {
	lit := schemas.XPathLiteral(product)
	return schemas.LocatorSet{
		schemas.XPath("//*[contains(@class, 'shelf-item__title')][contains(., " + lit + ")]"),
		schemas.XPath("//*[contains(@class, 'product-title')][contains(., " + lit + ")]"),
		schemas.XPath("//p[contains(., " + lit + ")]"),
	}
}
