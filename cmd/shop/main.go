// Command shop is a demo storefront client: it signs in, browses the
// catalog with optional filters, and optionally buys a book, printing each
// step. It exercises the full reconciliation path against a running
// bookstore service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"BookNook/internal/storefront"
	"BookNook/pkg/kit"
)

var sortOptions = map[string]storefront.SortOption{
	"none":        storefront.SortNone,
	"title-asc":   storefront.SortTitleAsc,
	"title-desc":  storefront.SortTitleDesc,
	"price-asc":   storefront.SortPriceAsc,
	"price-desc":  storefront.SortPriceDesc,
	"author-asc":  storefront.SortAuthorAsc,
	"author-desc": storefront.SortAuthorDesc,
}

func main() {
	var (
		baseURL  = flag.String("url", getenv("BOOKSTORE_URL", "http://localhost:8080"), "bookstore base URL")
		email    = flag.String("email", "john@example.com", "account email")
		password = flag.String("password", "password123", "account password")
		search   = flag.String("search", "", "search term")
		genres   = flag.String("genres", "", "comma-separated genre filter")
		sortBy   = flag.String("sort", "none", "sort: none|title-asc|title-desc|price-asc|price-desc|author-asc|author-desc")
		minPrice = flag.Int64("min-cents", 0, "minimum price in cents")
		maxPrice = flag.Int64("max-cents", 0, "maximum price in cents (0 = unbounded)")
		buyISBN  = flag.String("buy", "", "ISBN to add to the cart and check out")
		buyQty   = flag.Int("qty", 1, "quantity to buy")
		showRecs = flag.Bool("recommended", false, "also print the recommendation shelf")
	)
	flag.Parse()

	log := kit.NewLogger("shop")
	defer func() { _ = log.Sync() }()

	sortOpt, ok := sortOptions[*sortBy]
	if !ok {
		log.Fatal("unknown sort option", zap.String("sort", *sortBy))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	api := storefront.NewClient(*baseURL)
	session := storefront.NewSession(api, log)

	if err := api.Register(ctx, *email, *password); err != nil {
		// An existing account is fine for the demo; anything else is not.
		if !strings.Contains(err.Error(), "exists") {
			log.Warn("register failed", zap.Error(err))
		}
	}
	if err := api.Login(ctx, *email, *password); err != nil {
		log.Fatal("login failed", zap.Error(err))
	}
	who, err := api.Whoami(ctx)
	if err != nil {
		log.Fatal("whoami failed", zap.Error(err))
	}
	fmt.Printf("signed in as %s (%s)\n", who.Email, who.Role)

	if err := session.RefreshCatalog(ctx); err != nil {
		log.Fatal("catalog fetch failed", zap.Error(err))
	}
	if err := session.LoadCart(ctx); err != nil {
		log.Fatal("cart fetch failed", zap.Error(err))
	}

	criteria := storefront.FilterCriteria{
		SortBy:        sortOpt,
		MinPriceCents: *minPrice,
		MaxPriceCents: *maxPrice,
		SearchTerm:    *search,
	}
	if *genres != "" {
		criteria.Genres = strings.Split(*genres, ",")
	}

	books := session.Browse(criteria)
	fmt.Printf("%d book(s):\n", len(books))
	for _, b := range books {
		fmt.Printf("  %-16s %-32s %-22s $%d.%02d  (%d in stock)\n",
			b.ISBN, b.Title, b.Author, b.PriceCents/100, b.PriceCents%100, b.Inventory)
	}

	if *showRecs {
		recs, err := session.Recommended(ctx)
		if err != nil {
			log.Fatal("recommendations failed", zap.Error(err))
		}
		fmt.Printf("\nrecommended for you:\n")
		for _, b := range recs {
			fmt.Printf("  %-16s %-32s %s\n", b.ISBN, b.Title, b.Author)
		}
	}

	if *buyISBN == "" {
		return
	}

	// Fetch the live record so a 404 surfaces before touching the cart.
	book, err := api.FetchBook(ctx, *buyISBN)
	if err != nil {
		log.Fatal("book lookup failed", zap.String("isbn", *buyISBN), zap.Error(err))
	}

	if err := session.AddToCart(ctx, book, *buyQty); err != nil {
		log.Fatal("add to cart failed", zap.Error(err))
	}
	fmt.Printf("\ncart: %d item(s), total $%d.%02d\n",
		session.Cart().ItemCount(), session.Cart().TotalCents()/100, session.Cart().TotalCents()%100)

	order, err := session.Checkout(ctx)
	if err != nil {
		if errors.Is(err, storefront.ErrRequestFailed) {
			log.Fatal("checkout rejected", zap.Error(err))
		}
		log.Fatal("checkout failed", zap.Error(err))
	}

	fmt.Printf("\norder %s placed at %s:\n", order.ID, order.CreatedAt.Format(time.RFC3339))
	for _, it := range order.Items {
		fmt.Printf("  %d x %s ($%d.%02d each)\n", it.Quantity, it.Title, it.PriceCents/100, it.PriceCents%100)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
