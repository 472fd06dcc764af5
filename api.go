package marketd

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

func (m *Marketplace) runAPI(port string) {
	r := m.engine
	r.Use(CORSMiddleware())
	r.Use(LimiterMiddleware(600, "M", nil))
	v1 := r.Group("/")
	{
		// registration, supervisor-only
		v1.POST("/user/register", m.apiRegisterUser)
		v1.POST("/shop/register", m.apiRegisterShop)
		v1.POST("/shop/remove", m.apiRemoveShop)
		v1.POST("/deposit", m.apiDeposit)

		// discovery
		v1.GET("/sellers", m.apiGetSellers)
		v1.GET("/sellers/next/:address", m.apiNextSeller)
		v1.GET("/seller/:address", m.apiSellerData)
		v1.GET("/user/:address", m.apiUserAccount)

		// catalog management
		v1.POST("/shop/price", m.apiSetPrice)
		v1.POST("/shop/subscribe_price", m.apiSetSubscribePrice)
		v1.POST("/shop/open", m.apiSetPurchaseOpen)
		v1.POST("/shop/close", m.apiSetPurchaseClose)
		v1.POST("/shop/data", m.apiUpdateData)
		v1.POST("/shop/data/availability", m.apiSetDataAvailability)
		v1.GET("/shop/:address/data/:index", m.apiGetData)
		v1.GET("/shop/:address/size", m.apiGetDataListSize)
		v1.GET("/shop/:address/availability/:mamRoot", m.apiGetDataAvailability)

		// settlement lifecycle
		v1.POST("/purchase", m.apiPurchaseData)
		v1.POST("/finalize", m.apiFinalize)
		v1.POST("/execute", m.apiExecute)
		v1.GET("/escrow/:scriptHash", m.apiGetEscrow)
		v1.GET("/balance/:address", m.apiGetBalance)

		// subscriptions
		v1.POST("/subscribe", m.apiSubscribeShop)
		v1.POST("/purchase_by_subscription", m.apiPurchaseBySubscription)
		v1.GET("/subscription/:buyer/:seller", m.apiGetSubscription)

		// event archive, filtered by indexed fields
		v1.GET("/events/hash/:scriptHash", m.apiEventsByScriptHash)
		v1.GET("/events/address/:address", m.apiEventsByAddress)
	}

	if err := r.Run(port); err != nil {
		panic(err)
	}
}

func errorResponse(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSignatureInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, ErrSubscriptionInvalid):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrNotFound
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return amount, nil
}

type registerUserReq struct {
	Caller     string `json:"caller"`
	Address    string `json:"address"`
	ExternalId string `json:"externalId"`
}

func (m *Marketplace) apiRegisterUser(c *gin.Context) {
	req := registerUserReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.RegisterUser(caller, addr, req.ExternalId); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex()})
}

type registerShopReq struct {
	Caller string `json:"caller"`
	Seller string `json:"seller"`
	Info   string `json:"info"`
}

func (m *Marketplace) apiRegisterShop(c *gin.Context) {
	req := registerShopReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	seller, err := parseAddress(req.Seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.RegisterShop(caller, seller, req.Info); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seller": seller.Hex()})
}

func (m *Marketplace) apiRemoveShop(c *gin.Context) {
	req := registerShopReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	seller, err := parseAddress(req.Seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.RemoveShop(caller, seller); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seller": seller.Hex()})
}

type depositReq struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (m *Marketplace) apiDeposit(c *gin.Context) {
	req := depositReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		errorResponse(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.Deposit(caller, addr, amount); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex()})
}

func (m *Marketplace) apiGetSellers(c *gin.Context) {
	sellers, err := m.Sellers()
	if err != nil {
		errorResponse(c, err)
		return
	}
	res := make([]string, 0, len(sellers))
	for _, seller := range sellers {
		res = append(res, seller.Hex())
	}
	c.JSON(http.StatusOK, res)
}

func (m *Marketplace) apiNextSeller(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	next, err := m.NextSeller(addr)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next": next.Hex()})
}

func (m *Marketplace) apiSellerData(c *gin.Context) {
	seller, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	profile, err := m.SellerData(seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (m *Marketplace) apiUserAccount(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	externalId, err := m.UserAccounts(addr)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"externalId": externalId})
}

type shopValueReq struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

func (m *Marketplace) apiSetPrice(c *gin.Context) {
	req := shopValueReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.SetPrice(caller, value); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (m *Marketplace) apiSetSubscribePrice(c *gin.Context) {
	req := shopValueReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.SetSubscribePrice(caller, value); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type shopGateReq struct {
	Caller string `json:"caller"`
}

func (m *Marketplace) apiSetPurchaseOpen(c *gin.Context) {
	req := shopGateReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.SetPurchaseOpen(caller); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (m *Marketplace) apiSetPurchaseClose(c *gin.Context) {
	req := shopGateReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.SetPurchaseClose(caller); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type updateDataReq struct {
	Caller   string `json:"caller"`
	MamRoot  string `json:"mamRoot"`
	Metadata string `json:"metadata"`
}

func (m *Marketplace) apiUpdateData(c *gin.Context) {
	req := updateDataReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	index, err := m.UpdateData(caller, req.MamRoot, req.Metadata)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index})
}

type availabilityReq struct {
	Caller    string `json:"caller"`
	MamRoot   string `json:"mamRoot"`
	Available bool   `json:"available"`
}

func (m *Marketplace) apiSetDataAvailability(c *gin.Context) {
	req := availabilityReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.SetDataAvailability(caller, req.MamRoot, req.Available); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (m *Marketplace) apiGetData(c *gin.Context) {
	seller, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		errorResponse(c, ErrNotFound)
		return
	}
	item, err := m.GetData(seller, index)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (m *Marketplace) apiGetDataListSize(c *gin.Context) {
	seller, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	size, err := m.GetDataListSize(seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"size": size})
}

func (m *Marketplace) apiGetDataAvailability(c *gin.Context) {
	seller, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	available, err := m.GetDataAvailability(seller, c.Param("mamRoot"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

type purchaseReq struct {
	Buyer   string `json:"buyer"`
	Seller  string `json:"seller"`
	MamRoot string `json:"mamRoot"`
	Value   string `json:"value"`
}

func (m *Marketplace) apiPurchaseData(c *gin.Context) {
	req := purchaseReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	buyer, err := parseAddress(req.Buyer)
	if err != nil {
		errorResponse(c, err)
		return
	}
	seller, err := parseAddress(req.Seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		errorResponse(c, err)
		return
	}
	scriptHash, err := m.PurchaseData(buyer, seller, req.MamRoot, value)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scriptHash": scriptHash.Hex()})
}

type settleReq struct {
	ScriptHash    string `json:"scriptHash"`
	V             string `json:"v"`
	R             string `json:"r"`
	S             string `json:"s"`
	DeliveryProof string `json:"deliveryProof"`
}

func (m *Marketplace) apiFinalize(c *gin.Context) {
	req := settleReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	sig, err := ParseSignature(req.V, req.R, req.S)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.Finalize(common.HexToHash(req.ScriptHash), sig, req.DeliveryProof); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (m *Marketplace) apiExecute(c *gin.Context) {
	req := settleReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	sig, err := ParseSignature(req.V, req.R, req.S)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.Execute(common.HexToHash(req.ScriptHash), sig); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (m *Marketplace) apiGetEscrow(c *gin.Context) {
	rec, err := m.EscrowOf(common.HexToHash(c.Param("scriptHash")))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (m *Marketplace) apiGetBalance(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	balance, err := m.BalanceOf(addr)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance.String()})
}

type subscribeReq struct {
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
	Duration int64  `json:"duration"`
	Value    string `json:"value"`
}

func (m *Marketplace) apiSubscribeShop(c *gin.Context) {
	req := subscribeReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	buyer, err := parseAddress(req.Buyer)
	if err != nil {
		errorResponse(c, err)
		return
	}
	seller, err := parseAddress(req.Seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.SubscribeShop(buyer, seller, req.Duration, value); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (m *Marketplace) apiPurchaseBySubscription(c *gin.Context) {
	req := purchaseReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	buyer, err := parseAddress(req.Buyer)
	if err != nil {
		errorResponse(c, err)
		return
	}
	seller, err := parseAddress(req.Seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if err := m.PurchaseBySubscription(buyer, seller, req.MamRoot); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (m *Marketplace) apiGetSubscription(c *gin.Context) {
	buyer, err := parseAddress(c.Param("buyer"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	seller, err := parseAddress(c.Param("seller"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	entry, err := m.SubscriptionOf(buyer, seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	valid, err := m.IsSubscriptionValid(buyer, seller)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "valid": valid})
}

func (m *Marketplace) apiEventsByScriptHash(c *gin.Context) {
	if m.wdb == nil {
		errorResponse(c, ErrNotFound)
		return
	}
	events, err := m.wdb.GetEventsByScriptHash(common.HexToHash(c.Param("scriptHash")).Hex())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (m *Marketplace) apiEventsByAddress(c *gin.Context) {
	if m.wdb == nil {
		errorResponse(c, ErrNotFound)
		return
	}
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	events, err := m.wdb.GetEventsByAddress(addr.Hex(), c.Query("type"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
