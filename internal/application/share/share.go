package share

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"mliang-listings/internal/domain"
)

// Signature is the brokerage block closing every social post.
type Signature struct {
	Brokerage string
	Title     string
	License   string
	Contact   string
	Hashtags  string
}

// DefaultSignature returns the brokerage block with the given contact number.
func DefaultSignature(contact string) Signature {
	if contact == "" {
		contact = "09393440944"
	}
	return Signature{
		Brokerage: "M. Liang Realty",
		Title:     "LICENSED REAL ESTATE BROKER",
		License:   "PRC NO. 0019653",
		Contact:   contact,
		Hashtags: "#realestate #realtor #realtorlife #realestateagent #property #home #broker #forsale " +
			"#justlisted #newlisting #listingagent #homesforsale #houseforsale #homeforsale " +
			"#firsttimehomebuyer #homebuyers #househunting #newhome #dreamhome #homeownership " +
			"#investmentproperty #homedecor #luxurylifestyle #luxuryhomes #homesweethome " +
			"#SanFernando #Pampanga #Philippines",
	}
}

// Summary renders "field: value" lines in column order.
func Summary(rec domain.Record, columns []string) string {
	lines := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := rec[c]; !ok {
			continue
		}
		lines = append(lines, c+": "+rec.String(c))
	}
	return strings.Join(lines, "\n")
}

func hasMedia(rec domain.Record, kind string) bool {
	for k, v := range rec {
		if strings.Contains(strings.ToLower(k), kind) && domain.StringValue(v) != "" {
			return true
		}
	}
	return false
}

// MediaLine is the trailing "PM for ..." hint, or "" when the listing has
// neither photos nor video.
func MediaLine(rec domain.Record) string {
	photos, video := hasMedia(rec, "photo"), hasMedia(rec, "video")
	switch {
	case photos && video:
		return "PM for Photos and Video"
	case photos:
		return "PM for Photos"
	case video:
		return "PM for Video"
	}
	return ""
}

func price(rec domain.Record) string {
	for _, k := range []string{"Listing Price", "ListingPrice", "Price"} {
		if v := rec.String(k); v != "" {
			return v
		}
	}
	return ""
}

// Post renders the social media listing post.
func Post(rec domain.Record, sig Signature) string {
	var b strings.Builder
	b.WriteString("‼️HOUSE AND LOT FOR SALE‼️\n\n")
	fmt.Fprintf(&b, "📍%s,\n", rec.String("Village"))
	fmt.Fprintf(&b, "📍%s,\n\n", rec.String("Location"))
	fmt.Fprintf(&b, "🏷️%s\n\n", price(rec))
	fmt.Fprintf(&b, "Lot Area : %s\n", rec.String("Lot Area"))
	fmt.Fprintf(&b, "Floor Area : %s\n\n", rec.String("Floor Area"))
	fmt.Fprintf(&b, "✔️ %s\n\n", rec.String("Notes"))
	fmt.Fprintf(&b, "CGT - %s\n", rec.String("CGT"))
	fmt.Fprintf(&b, "Transfer - %s\n\n", rec.String("Transfer Title"))
	fmt.Fprintf(&b, "%s\n%s\n%s\n%s\n\n", sig.Brokerage, sig.Title, sig.License, sig.Contact)
	b.WriteString(sig.Hashtags)
	if m := MediaLine(rec); m != "" {
		b.WriteString("\n\n" + m)
	}
	return b.String()
}

var driveFileID = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// DriveThumbnail turns a Google Drive file link into its thumbnail URL.
func DriveThumbnail(link string) (string, bool) {
	if !strings.Contains(link, "drive.google.com") {
		return "", false
	}
	m := driveFileID.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	return "https://drive.google.com/thumbnail?id=" + m[1] + "&sz=w400", true
}

// PhotoURL returns the first non-empty photo field in column order.
func PhotoURL(rec domain.Record, columns []string) string {
	for _, c := range columns {
		if strings.Contains(strings.ToLower(c), "photo") {
			if v := rec.String(c); v != "" {
				return v
			}
		}
	}
	return ""
}

// SharerURL builds the Facebook share dialog link. The preview points at the
// Drive thumbnail of the first photo when there is one, else at pageURL.
func SharerURL(rec domain.Record, columns []string, pageURL, text string) string {
	target := pageURL
	if photo := PhotoURL(rec, columns); photo != "" {
		if thumb, ok := DriveThumbnail(photo); ok {
			target = thumb
		}
	}
	return "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(target) + "&quote=" + url.QueryEscape(text)
}

// LocationVideos maps a listing location to its walkthrough video.
type LocationVideos map[string]string

// For returns the video for location, or "".
func (v LocationVideos) For(location string) string {
	return v[strings.TrimSpace(location)]
}
